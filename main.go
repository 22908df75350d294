package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"ustarfile/ustar"
)

func main() {
	createExampleArchive()
	listExampleArchive()
	extractExampleArchive()
}

func createExampleArchive() {
	os.Remove("example.tar") // start fresh on reruns
	a, err := ustar.Create("example.tar")
	if err != nil {
		log.Fatalf("create archive: %v", err)
	}
	defer a.Close()

	content := "Hello, World! This is a test file."
	m := ustar.NewMember("test.txt")
	m.Size = int64(len(content))

	if err := a.Add(m, strings.NewReader(content)); err != nil {
		log.Fatalf("add member: %v", err)
	}
	fmt.Println("created example.tar")
}

func listExampleArchive() {
	a, err := ustar.Open("example.tar")
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer a.Close()

	fmt.Println("archive members:")
	for _, m := range a.Members() {
		fmt.Printf("- %s (%d bytes)\n", m.Path, m.Size)
	}
}

func extractExampleArchive() {
	a, err := ustar.Open("example.tar")
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer a.Close()

	if err := os.MkdirAll("extracted", 0755); err != nil {
		log.Fatalf("create extraction dir: %v", err)
	}
	if err := a.ExtractAll("extracted"); err != nil {
		log.Fatalf("extract: %v", err)
	}

	if content, err := os.ReadFile("extracted/test.txt"); err == nil {
		fmt.Printf("extracted content: %s\n", content)
	} else {
		log.Printf("read extracted file: %v", err)
	}
}
