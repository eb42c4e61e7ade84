// Package llm provides the language model abstractions used by the question
// answering pipeline.
//
// This package defines:
//   - Message types for conversations (system, user, assistant)
//   - Completion requests and responses with functional options
//   - The Client interface and an OpenAI-compatible implementation built on eino
//   - Slot definitions binding a pipeline stage to a model and temperature
//   - Reasoning trace stripping for models that emit <think> blocks
//   - Token usage tracking per slot
//
// # Completion Requests
//
// Slots turn configuration into requests:
//
//	slot := llm.SlotDefinition{Name: llm.SlotSynthesis, Model: "Meta-Llama-3.3-70B-Instruct"}
//	resp, err := client.Complete(ctx, slot.Request(
//	    llm.SystemMessage("You are an expert in Neo4j Cypher."),
//	    llm.UserMessage("Question: Who directed Heat?"),
//	))
//
// # Clients
//
// NewOpenAIClient talks to any OpenAI-compatible endpoint (SambaNova by default)
// and refuses to start without an API key:
//
//	client, err := llm.NewOpenAIClient(ctx, llm.OpenAIConfig{
//	    APIKey: os.Getenv("SAMBANOVA_API_KEY"),
//	})
//
// # Token Tracking
//
//	ledger := llm.NewUsageLedger()
//	ledger.Add(llm.SlotReply, resp.Usage)
//	total := ledger.Total()
package llm
