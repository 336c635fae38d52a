// Package config holds the global chat settings: prompts, limits, the
// prompt group order and the global bias.
//
// Settings load from YAML or TOML files over Default, with CHARKIT_
// environment variables applied on top:
//
//	s, err := config.Load("settings.yaml")
//	if err != nil {
//	    return err
//	}
//	s.LoadFromEnv()
//	if err := s.Validate(); err != nil {
//	    return err
//	}
//	engine := chat.NewEngine(client, s.ChatOptions(), nil)
//
// Watch reloads the file when it changes.
package config
