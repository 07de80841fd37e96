package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

var ErrInvalidProduct = errors.New("invalid product")

var submissionValidator = validator.New(validator.WithRequiredStructEnabled())

type submission struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=2000"`
	Category    string `validate:"required,max=60"`
	ImageURL    string `validate:"omitempty,max=500"`
}

// newSubmission checks a lender's product and returns it ready to insert: trimmed, pending
// review (inactive) and stamped with now. The ID is left for the repository to assign.
func newSubmission(p domain.Product, now time.Time) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	p.ImageURL = strings.TrimSpace(p.ImageURL)

	err := submissionValidator.Struct(submission{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
	})
	if err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return domain.Product{}, fmt.Errorf("%w: %s failed %q", ErrInvalidProduct, strings.ToLower(errs[0].Field()), errs[0].Tag())
		}
		return domain.Product{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	if !p.Price.IsPositive() {
		return domain.Product{}, fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}

	p.ID = 0
	p.Status = domain.ProductStatusInactive
	p.CreatedAt = now.UTC().Truncate(time.Second)
	return p, nil
}
