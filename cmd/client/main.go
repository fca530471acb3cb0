package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

type Contact struct {
	Id        int64   `json:"id"`
	FirstName *string `json:"first_name,omitempty"`
}

// Usage example on the command line:
// > go run main.go -server=http://localhost:8080 -output=all_contacts.vcf
//
// The client measures the export endpoints with a growing number of contacts. All contacts it
// creates are deleted again afterwards.
func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the contacts service")
	output := flag.String("output", "", "write the last bulk export to this file")
	flag.Parse()

	fmt.Println()
	fmt.Println("  Contacts  export-vcf  export-all  vCards ")
	fmt.Println("-------------------------------------------")
	jsonBody := []byte(`{
		"first_name": "Marcus",
		"last_name": "Antonius",
		"phone_number": "+39 999 777 555",
		"company": "SPQR",
		"notes": "friend of Caesar; enemy of Octavian"
	}`)

	var ids []int64
	var lastExport []byte
	for _, size := range []int{10, 100, 1000} {
		for len(ids) < size {
			ids = append(ids, sendPostRequest(*server, bytes.NewReader(jsonBody)))
		}
		fmt.Printf("%10d", size)

		// Single exports in random order
		var duration time.Duration
		for _, i := range rand.Perm(len(ids)) {
			_, d := sendRequest(http.MethodGet, fmt.Sprintf("%s/export-vcf/%d", *server, ids[i]), nil)
			duration += d
		}
		fmt.Printf("%12s", (duration / time.Duration(len(ids))).Round(time.Microsecond))

		// One bulk export
		body, d := sendRequest(http.MethodGet, *server+"/export-all-vcf", nil)
		fmt.Printf("%12s", d.Round(time.Microsecond))
		fmt.Printf("%8d", strings.Count(string(body), "BEGIN:VCARD"))
		fmt.Println()
		lastExport = body
	}

	for _, id := range ids {
		sendRequest(http.MethodDelete, fmt.Sprintf("%s/contacts/%d", *server, id), nil)
	}
	if *output != "" {
		if err := os.WriteFile(*output, lastExport, 0o644); err != nil {
			fmt.Println("could not write export", err)
			panic(err)
		}
	}
}

func sendPostRequest(server string, bodyReader io.Reader) int64 {
	resBody, _ := sendRequest(http.MethodPost, server+"/contacts", bodyReader)
	var contact Contact
	err := json.Unmarshal(resBody, &contact)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return contact.Id
}

func sendRequest(method string, requestURL string, bodyReader io.Reader) ([]byte, time.Duration) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	before := time.Now()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	return resBody, time.Since(before)
}
