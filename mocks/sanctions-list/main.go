// Command sanctions-list is a local stand-in for the consolidated screening
// list search API. Responses are deterministic per name.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort      = "8082"
	defaultAPIKey    = "sanctions-list-secret-key"
	defaultLatencyMs = "50"
)

type SearchEntry struct {
	Name   string  `json:"name"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type SearchResponse struct {
	Total   int           `json:"total"`
	Results []SearchEntry `json:"results"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

// listedNames always match with a full score. Lower-case keys.
var listedNames = map[string]string{
	"rogue logistics llc":    "Specially Designated Nationals (SDN) - Treasury Department",
	"blocked metals trading": "Entity List (EL) - Bureau of Industry and Security",
	"shadow freight co":      "Nonproliferation Sanctions (ISN) - State Department",
}

// slowNames never answer within a client timeout, for fail-closed testing.
var slowNames = map[string]bool{
	"slow vendor inc": true,
}

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/search", handleSearch)

	log.Printf("mock sanctions list API starting on port %s", port)
	log.Printf("subscription key: %s", apiKey)
	log.Printf("simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "sanctions-list",
	})
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("incoming request: %s %s", r.Method, r.URL.RequestURI())

	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if key := r.Header.Get("subscription-key"); key != apiKey {
		sendError(w, "Missing or invalid subscription-key header", http.StatusUnauthorized)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		sendError(w, "name is required", http.StatusBadRequest)
		return
	}
	key := strings.ToLower(name)
	if slowNames[key] {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Minute):
		}
		return
	}

	resp := search(key, name)
	writeJSON(w, http.StatusOK, resp)
	log.Printf("sanctions search: %q -> %d results", name, resp.Total)
}

// search returns the listed entry for known names and otherwise a weak,
// hash-derived near miss so clients exercise their score threshold.
func search(key, name string) SearchResponse {
	if source, ok := listedNames[key]; ok {
		return SearchResponse{Total: 1, Results: []SearchEntry{{Name: strings.ToUpper(name), Source: source, Score: 100}}}
	}

	hash := sha256.Sum256([]byte(key))
	if hash[0]%4 != 0 {
		return SearchResponse{Results: []SearchEntry{}}
	}
	// 40..79: always below the default threshold of 80.
	score := 40 + float64(hash[1]%40)
	return SearchResponse{Total: 1, Results: []SearchEntry{{
		Name:   strings.ToUpper(name) + " HOLDINGS",
		Source: "Unverified List (UVL) - Bureau of Industry and Security",
		Score:  score,
	}}}
}

func sendError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, ErrorResponse{Error: http.StatusText(code), Message: message, Code: code})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
