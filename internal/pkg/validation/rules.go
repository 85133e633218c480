package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/biograph/insights/internal/curriculum"
)

// Custom validation tags
const (
	// TagWireStatus accepts "pendente", "cursando" and "concluido"
	TagWireStatus = "wirestatus"
)

// rules maps every custom tag to its check
var rules = map[string]validator.Func{
	TagWireStatus: validateWireStatus,
}

// Register adds the custom rules to v.
func Register(v *validator.Validate) error {
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

func validateWireStatus(fl validator.FieldLevel) bool {
	_, err := curriculum.ParseStatus(fl.Field().String())
	return err == nil
}
