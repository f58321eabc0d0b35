package main

import "license_ledger/internal/app"

func main() {
	app.Run()
}
