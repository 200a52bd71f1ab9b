package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/interfaces"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
)

var profileTriggers = []string{"change", "update", "set", "my name is", "my goal is"}

const extractInstruction = `Extract a single personal fact the user wants remembered from their message.
Reply with JSON only, in the form {"key": "<short snake_case key>", "value": "<value>"}.
If the message contains no such fact, reply with {"key": "", "value": ""}.`

func wantsProfileUpdate(message string) bool {
	lowered := strings.ToLower(message)
	for _, trigger := range profileTriggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}

// updateProfile asks the generator for a fact in message and stores it. It
// returns nil when the message holds no fact.
func updateProfile(ctx context.Context, gen interfaces.Generator, profiles repository.ProfileStore, message string) (*model.ProfileFact, error) {
	resp, err := gen.Generate(ctx, []model.Message{
		model.SystemMessage(extractInstruction),
		model.UserMessage(message),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract profile fact")
	}

	fact, err := parseFact(resp)
	if err != nil {
		logging.From(ctx).Warn("ignoring unparsable profile fact", "response", resp, "error", err)
		return nil, nil
	}
	if fact == nil {
		return nil, nil
	}

	if err := profiles.PutFact(ctx, *fact); err != nil {
		return nil, goerr.Wrap(err, "failed to store profile fact", goerr.V("key", fact.Key))
	}
	logging.From(ctx).Info("profile updated", "key", fact.Key)

	return fact, nil
}

func parseFact(resp string) (*model.ProfileFact, error) {
	text := strings.TrimSpace(resp)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var fact model.ProfileFact
	if err := json.Unmarshal([]byte(text), &fact); err != nil {
		return nil, goerr.Wrap(err, "invalid profile fact JSON")
	}

	fact.Key = strings.TrimSpace(fact.Key)
	fact.Value = strings.TrimSpace(fact.Value)
	if fact.Key == "" || fact.Value == "" {
		return nil, nil
	}
	return &fact, nil
}
