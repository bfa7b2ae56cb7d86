package main

import "github.com/MeKo-Tech/filingocr/cmd/filingocr/cmd"

func main() {
	cmd.Execute()
}
