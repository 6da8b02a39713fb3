package exam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidatePaper checks a paper before it is stored. TotalQuestions defaults to
// the number of questions when unset.
func ValidatePaper(p *Paper) error {
	p.ID = strings.TrimSpace(p.ID)
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidInput, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if p.TotalQuestions == 0 {
		p.TotalQuestions = len(p.Questions)
	}
	seen := map[string]bool{}
	for i, q := range p.Questions {
		key := IDFor(q, i).Key()
		if seen[key] {
			return fmt.Errorf("%w: duplicate question id %s", ErrInvalidInput, key)
		}
		seen[key] = true
		if q.CorrectIndex != nil && (*q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options)) {
			return fmt.Errorf("%w: question %s: correct_index out of range", ErrInvalidInput, key)
		}
	}
	return nil
}
