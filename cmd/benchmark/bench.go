package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const mockPort = 9091

var unaryResp = []byte(`{
	"id": "bench-123",
	"model": "bench-model",
	"choices": [{"message": {"role": "assistant", "content": "Hello"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 9, "completion_tokens": 1}
}`)

// Load generator for a running gateway. Point an endpoint config at the
// mock upstream started here (base_url http://localhost:9091) before
// attacking, so no real provider traffic or spend is involved.
func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	target := flag.String("target", "http://localhost:8080", "Gateway base URL")
	apiKey := flag.String("key", "bench-key-12345", "Gateway API key")
	endpoint := flag.String("endpoint", "bench-endpoint", "Endpoint id to invoke")
	flag.Parse()

	go startMockUpstream()
	waitForReady(fmt.Sprintf("%s/health", *target))

	body := fmt.Sprintf(`{"endpoint_id": %q, "messages": [{"role": "user", "content": "Hello"}]}`, *endpoint)

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = fmt.Sprintf("%s/v1/invoke", *target)
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type":      []string{"application/json"},
			"Authorization":     []string{"Bearer " + *apiKey},
			"X-Benchmark-Start": []string{strconv.FormatInt(time.Now().UnixNano(), 10)},
		}
		return nil
	}

	fmt.Printf("Running benchmark: %s duration, %d req/s\n", *duration, *rate)

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)

				uniqueErrors[msg] = true
				count++
			}
		}
	}
}

// startMockUpstream serves an OpenAI-shaped completion so the gateway has a
// harmless provider to dispatch against.
func startMockUpstream() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	addr := fmt.Sprintf(":%d", mockPort)
	fmt.Printf("Mock upstream listening on %s\n", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("mock upstream failed: %v", err)
	}
}

func waitForReady(url string) {
	client := http.Client{Timeout: 500 * time.Millisecond}
	for i := 0; i < 40; i++ {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	log.Fatalf("gateway not reachable at %s", url)
}
