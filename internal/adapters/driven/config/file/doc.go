// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage (~/.appraisal/config.toml)
//   - PromptStore: user-editable prompt templates (~/.appraisal/prompts/)
//
// LoadDotEnv and ApplyEnv layer .env files and process environment on top of
// the stored settings; the environment always wins.
package file
