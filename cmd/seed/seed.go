package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentforge/llm-gateway/internal/domain"
	"github.com/agentforge/llm-gateway/internal/store/sqlite"
)

// Seeds a development config store with one template and endpoint per
// provider family, plus an agent assignment pointing at the OpenAI one.
// API keys are read from the environment at request time (OPENAI_DEV_KEY
// etc.), so nothing secret lands in the database.
func main() {
	// Run migrations first.
	cs, err := sqlite.New("gateway.db")
	if err != nil {
		log.Fatal(err)
	}
	if err := cs.Close(); err != nil {
		log.Fatal(err)
	}

	db, err := sqlx.Connect("sqlite3", "gateway.db")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	templates := []struct {
		id, name, baseURL, path, authType, authHeader, transformer string
	}{
		{"openai", "OpenAI", "https://api.openai.com", "/v1/chat/completions", domain.AuthBearer, "", "openai"},
		{"anthropic", "Anthropic", "https://api.anthropic.com", "/v1/messages", domain.AuthHeaderKey, "x-api-key", "anthropic"},
		{"gemini", "Google Gemini", "https://generativelanguage.googleapis.com", "/v1beta/models/{model}:generateContent", domain.AuthHeaderKey, "x-goog-api-key", "gemini"},
		{"bedrock", "AWS Bedrock", "https://bedrock-runtime.us-east-1.amazonaws.com", "/model/{model}/converse", domain.AuthSigned, "", "bedrock"},
	}

	for _, t := range templates {
		_, err := db.Exec(`INSERT OR IGNORE INTO provider_templates
			(provider_id, provider_name, base_url, endpoint_path, auth_type, auth_header,
			 request_transformer_id, response_transformer_id,
			 default_timeout_ms, max_retries, supports_streaming, supports_tools)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 60000, 3, 1, 1)`,
			t.id, t.name, t.baseURL, t.path, t.authType, t.authHeader, t.transformer, t.transformer)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Created template: %s\n", t.id)
	}

	endpoints := []struct {
		id, provider, model, secretPath string
	}{
		{"openai-dev", "openai", "gpt-4o-mini", "openai/dev/key"},
		{"anthropic-dev", "anthropic", "claude-sonnet-4-20250514", "anthropic/dev/key"},
		{"gemini-dev", "gemini", "gemini-2.0-flash", "gemini/dev/key"},
		{"bedrock-dev", "bedrock", "anthropic.claude-3-5-sonnet-20241022-v2:0", "bedrock/dev/key"},
	}

	for _, e := range endpoints {
		_, err := db.Exec(`INSERT OR IGNORE INTO endpoints
			(endpoint_id, provider_id, environment, name, model_id, secret_path,
			 custom_headers, rate_limit, priority, enabled, test_status)
			VALUES (?, ?, 'dev', ?, ?, ?, '{}', 0, 0, 1, '')`,
			e.id, e.provider, e.id, e.model, e.secretPath)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Created endpoint: %s -> %s\n", e.id, e.model)
	}

	agentID := uuid.New().String()
	if _, err := db.Exec(`INSERT OR IGNORE INTO agent_assignments (agent_id, endpoint_id) VALUES (?, ?)`,
		agentID, "openai-dev"); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\nSuccessfully seeded database!\n")
	fmt.Printf("Agent %s is assigned to openai-dev\n", agentID)
	fmt.Println("Export the API keys referenced by secret_path, e.g. OPENAI_DEV_KEY=sk-...")
}
