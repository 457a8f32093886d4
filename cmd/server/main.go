package main

import (
	"log"

	"github.com/hairkim/Fitness-App-sub000/internal/transport/http"
)

func main() {
	if err := http.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
