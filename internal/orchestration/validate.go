package orchestration

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/models"
)

var validate = validator.New()

// checkSchema validates a decoded LLM payload and reports missing fields as an
// InvalidArchitectureError.
func checkSchema(what string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate %s: %w", what, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: %s failed on %q", what, fe.Namespace(), fe.Tag()))
	}
	return &models.InvalidArchitectureError{Problems: problems}
}
