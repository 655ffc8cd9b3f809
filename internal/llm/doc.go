// Package llm classifies complaint narratives in batches with a language model.
// It supports the Anthropic and OpenAI chat APIs, with retry, rate limiting and
// incremental persistence of the classification cache.
package llm
