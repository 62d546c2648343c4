package main

import (
	"log"
	"os"

	"github.com/ugorji/go-mdblog/mdblog"
)

func main() {
	if err := mdblog.Main("mdblog", os.Args[1:]); err != nil {
		log.Fatalf("Main Error: %v\n", err)
	}
}
