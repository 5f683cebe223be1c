// Command business-registry is a local stand-in for the commercial business
// registry: a client-credentials token endpoint and a company search.
package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort         = "8081"
	defaultClientID     = "registry-client"
	defaultClientSecret = "registry-secret"
	defaultLatencyMs    = "100"
	defaultTokenTTL     = "3600"
)

type SearchRequest struct {
	SearchTerm      string `json:"searchTerm"`
	AddressLocality string `json:"addressLocality"`
	AddressRegion   string `json:"addressRegion"`
	CountryISO      string `json:"countryISOAlpha2Code"`
}

type Company struct {
	PrimaryName     string   `json:"primaryName"`
	YearsInBusiness *float64 `json:"yearsInBusiness"`
	OperatingStatus struct {
		Description string `json:"description"`
	} `json:"operatingStatus"`
	PrimaryAddress struct {
		AddressRegion struct {
			AbbreviatedName string `json:"abbreviatedName"`
		} `json:"addressRegion"`
	} `json:"primaryAddress"`
}

type SearchResponse struct {
	IsSuccess    bool      `json:"isSuccess"`
	DNBCompanies []Company `json:"dnbCompanies"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	clientID     = getEnv("CLIENT_ID", defaultClientID)
	clientSecret = getEnv("CLIENT_SECRET", defaultClientSecret)
	latencyMs    = getEnvInt("LATENCY_MS", defaultLatencyMs)
	tokenTTL     = getEnvInt("TOKEN_TTL_SECONDS", defaultTokenTTL)

	mu     sync.Mutex
	tokens = map[string]time.Time{}
)

// Magic search terms, lower-case, that pin the search outcome.
var (
	unknownNames   = map[string]bool{"ghost supplies": true}
	ambiguousNames = map[string]bool{"common name inc": true}
	youngNames     = map[string]bool{"new startup llc": true}
	inactiveNames  = map[string]bool{"closed shop": true}
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/v2/token", handleToken)
	http.HandleFunc("/v1/search/criteria", handleSearch)

	log.Printf("mock business registry API starting on port %s", port)
	log.Printf("client id: %s", clientID)
	log.Printf("simulated latency: %dms, token ttl: %ds", latencyMs, tokenTTL)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "business-registry",
	})
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, secret, ok := r.BasicAuth()
	if !ok || id != clientID || secret != clientSecret {
		sendError(w, "Invalid client credentials", http.StatusUnauthorized)
		return
	}

	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	mu.Lock()
	tokens[token] = time.Now().Add(time.Duration(tokenTTL) * time.Second)
	mu.Unlock()

	log.Printf("issued token, expires in %ds", tokenTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expiresIn":    tokenTTL,
	})
}

func handleSearch(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("incoming request: %s %s", r.Method, r.URL.Path)

	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !authorized(r.Header.Get("Authorization")) {
		sendError(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SearchTerm) == "" {
		sendError(w, "searchTerm is required", http.StatusBadRequest)
		return
	}

	resp := search(req)
	writeJSON(w, http.StatusOK, resp)
	log.Printf("registry search: %q -> %d companies", req.SearchTerm, len(resp.DNBCompanies))
}

func authorized(header string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	mu.Lock()
	defer mu.Unlock()
	exp, found := tokens[token]
	return found && time.Now().Before(exp)
}

func search(req SearchRequest) SearchResponse {
	key := strings.ToLower(strings.TrimSpace(req.SearchTerm))
	resp := SearchResponse{IsSuccess: true, DNBCompanies: []Company{}}

	switch {
	case unknownNames[key]:
		return resp
	case ambiguousNames[key]:
		resp.DNBCompanies = append(resp.DNBCompanies,
			company(req.SearchTerm, req.AddressRegion, 12, "Active"),
			company(req.SearchTerm+" Holdings", req.AddressRegion, 4, "Active"))
		return resp
	case youngNames[key]:
		resp.DNBCompanies = append(resp.DNBCompanies, company(req.SearchTerm, req.AddressRegion, 2, "Active"))
		return resp
	case inactiveNames[key]:
		resp.DNBCompanies = append(resp.DNBCompanies, company(req.SearchTerm, req.AddressRegion, 9, "Out of Business"))
		return resp
	}

	// Deterministic 5..34 years so repeated runs agree.
	hash := sha256.Sum256([]byte(key))
	years := 5 + float64(hash[0]%30)
	resp.DNBCompanies = append(resp.DNBCompanies, company(req.SearchTerm, req.AddressRegion, years, "Active"))
	return resp
}

func company(name, region string, years float64, status string) Company {
	var c Company
	c.PrimaryName = name
	c.YearsInBusiness = &years
	c.OperatingStatus.Description = status
	c.PrimaryAddress.AddressRegion.AbbreviatedName = region
	return c
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
