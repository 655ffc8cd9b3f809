package categorize

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/Veraticus/crypto-complaints/internal/model"
	"gopkg.in/yaml.v3"
)

// Category is one issue bucket: its label, a human name, and the triggers that
// score a narrative towards it. Triggers are listed most specific first.
type Category struct {
	ID       model.CategoryLabel `yaml:"id"`
	Label    string              `yaml:"label"`
	Keywords []string            `yaml:"keywords"`
}

// Definition is the ordered category list plus the fallback bucket.
type Definition struct {
	Fallback   Category   `yaml:"fallback"`
	Categories []Category `yaml:"categories"`
}

// DefaultFallback receives narratives that match no trigger.
func DefaultFallback() Category {
	return Category{ID: model.LabelOther, Label: "Other"}
}

// DefaultCategories returns the built-in categories in enumeration order. The
// order decides ties.
func DefaultCategories() []Category {
	return []Category{
		{
			ID:    model.LabelLockedAccount,
			Label: "Account Access",
			Keywords: []string{
				"account locked", "locked out", "locked", "lock", "access",
				"login", "disabled", "restricted", "suspended", "frozen",
			},
		},
		{
			ID:    model.LabelVerification,
			Label: "Verification Issues",
			Keywords: []string{
				"identity verification", "verification", "verify", "kyc", "identity",
				"documents", "id", "selfie", "photo",
			},
		},
		{
			ID:    model.LabelWithdrawal,
			Label: "Withdrawal Problems",
			Keywords: []string{
				"withdraw", "withdrawal", "transfer", "send", "funds", "money", "bank",
			},
		},
		{
			ID:    model.LabelCustomerService,
			Label: "Support Response",
			Keywords: []string{
				"no response", "customer service", "support", "response", "contact",
				"help", "waiting", "ignored", "ticket",
			},
		},
		{
			ID:    model.LabelFraud,
			Label: "Fraud/Scam Reports",
			Keywords: []string{
				"scam", "scammed", "scammer", "scammers", "fraud", "fraudulent",
				"stolen", "hacked", "hack", "unauthorized", "phishing",
			},
		},
		{
			ID:    model.LabelFees,
			Label: "Fee Disputes",
			Keywords: []string{
				"hidden fee", "fee", "fees", "charge", "charged", "cost", "expensive", "hidden",
			},
		},
	}
}

// DefaultDefinition returns the built-in categories and fallback.
func DefaultDefinition() Definition {
	return Definition{Categories: DefaultCategories(), Fallback: DefaultFallback()}
}

// LoadCategories reads a YAML category definition. A fallback omitted from the
// file defaults to "other".
func LoadCategories(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read category definitions: %w", err)
	}
	return ParseCategories(data)
}

// ParseCategories decodes and validates a YAML category definition.
func ParseCategories(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("%w: %w", common.ErrInvalidCategory, err)
	}
	if def.Fallback.ID == "" {
		def.Fallback = DefaultFallback()
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Validate checks labels, triggers and uniqueness.
func (d Definition) Validate() error {
	if len(d.Categories) == 0 {
		return fmt.Errorf("%w: no categories defined", common.ErrInvalidCategory)
	}
	if !d.Fallback.ID.Valid() {
		return fmt.Errorf("%w: unknown fallback label %q", common.ErrInvalidCategory, d.Fallback.ID)
	}

	var errs []error
	seen := map[model.CategoryLabel]bool{d.Fallback.ID: true}
	for i, c := range d.Categories {
		switch {
		case !c.ID.Valid():
			errs = append(errs, fmt.Errorf("category %d: unknown label %q", i, c.ID))
		case seen[c.ID]:
			errs = append(errs, fmt.Errorf("category %d: duplicate label %q", i, c.ID))
		}
		seen[c.ID] = true

		if len(c.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("category %q: no keywords", c.ID))
		}
		for _, kw := range c.Keywords {
			if strings.TrimSpace(kw) == "" {
				errs = append(errs, fmt.Errorf("category %q: empty keyword", c.ID))
				break
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidCategory, errors.Join(errs...))
	}
	return nil
}
