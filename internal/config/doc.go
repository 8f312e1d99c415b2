// Package config loads and validates Kaas configuration.
//
// Configuration is YAML with ${VAR} environment expansion:
//
//	database:
//	  path: ${HOME}/.local/share/kaas/kaas.db
//
//	provider:
//	  base_url: https://api.openai.com/v1
//	  api_key: ${OPENAI_API_KEY}
//	  chat_model: gpt-4o-mini
//	  timeout: 60s
//
//	logging:
//	  level: info      # debug, info, warn, error
//	  format: text     # text or json
//
// The provider section supplies fallbacks only; a model row's own endpoint
// and credentials take precedence per conversation.
package config
