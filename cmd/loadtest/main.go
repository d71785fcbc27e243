package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"production_queue/internal/middleware"
)

// Result is one HTTP outcome, aggregated by printSummary.
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	ingredientID := flag.String("ingredient", "", "ingredient id to raise POs for")
	productID := flag.String("product", "", "product id for the rate limit test (skipped when empty)")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "JWT secret used to sign test tokens")

	// duplicate PO test: n concurrent requests for the same ingredient
	n := flag.Int("n", 100, "concurrent purchase order requests")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	if *ingredientID == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "-ingredient and -secret are required")
		os.Exit(2)
	}
	ops, err := middleware.IssueToken(*secret, "loadtest-ops", middleware.RoleOperations, time.Hour)
	if err != nil {
		panic(err)
	}
	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("start duplicate PO test: ingredient=%s requests=%d concurrency=%d\n", *ingredientID, *n, *concurrency)
	body := map[string]string{"ingredient_id": *ingredientID}
	results := runConcurrent(*n, *concurrency, func() Result {
		return post(client, *baseURL+"/api/operations/purchase-orders", ops, body)
	})
	printSummary("purchase_orders", results)

	created := 0
	for _, r := range results {
		if r.Status == http.StatusCreated {
			created++
		}
	}
	fmt.Printf("purchase orders created: %d (want at most 1)\n", created)
	if created > 1 {
		os.Exit(1)
	}

	if *productID == "" {
		return
	}
	admin, err := middleware.IssueToken(*secret, "loadtest-admin", middleware.RoleAdmin, time.Hour)
	if err != nil {
		panic(err)
	}
	// one admin user; the default budget is 20 per hour
	fmt.Println("\nstart rate limit test: same admin, 30 requests, concurrency 10")
	results = runConcurrent(30, 10, func() Result {
		return post(client, *baseURL+"/api/admin/get-product-group-ingredients", admin, map[string]string{"product_id": *productID})
	})
	printSummary("rate_limit", results)
}

func runConcurrent(total, concurrency int, fn func() Result) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = fn()
		}(i)
	}

	wg.Wait()
	return results
}

func post(client *http.Client, url, token string, body any) Result {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(rb)}
}

// printSummary prints the status code distribution.
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 201, 400, 401, 403, 404, 409, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
