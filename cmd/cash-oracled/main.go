package main

import (
	"log"

	"cashchain/services/oracled"
)

func main() {
	if err := oracled.Main(); err != nil {
		log.Fatalf("cash-oracled: %v", err)
	}
}
