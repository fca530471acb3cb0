package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/health -timeout=2m
func main() {
	url := flag.String("url", "http://localhost:8080/health", "the health endpoint to poll")
	interval := flag.Duration("interval", 5*time.Second, "the pause between two attempts")
	timeout := flag.Duration("timeout", 5*time.Minute, "give up after this long")
	flag.Parse()

	client := &http.Client{Timeout: *interval}
	start := time.Now()
	for {
		res, err := client.Get(*url)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				fmt.Println(*url, "is available")
				return
			}
			fmt.Println(res.Status)
		} else {
			fmt.Println(err)
		}
		waited := time.Since(start).Round(time.Second)
		if waited >= *timeout {
			fmt.Printf("Gave up after %s", waited)
			fmt.Println()
			os.Exit(1)
		}
		fmt.Printf("Waiting %s", waited)
		fmt.Println()
		time.Sleep(*interval)
	}
}
