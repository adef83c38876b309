// SPDX-License-Identifier: EPL-2.0

package inference

import "fmt"

// Set is an ordered, read-only collection of uniquely named models.
type Set struct {
	models []Classifier
}

func NewSet(models ...Classifier) (*Set, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}

	seen := make(map[string]bool, len(models))
	for _, m := range models {
		if m.Name() == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidModel)
		}
		if seen[m.Name()] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModel, m.Name())
		}
		seen[m.Name()] = true
	}

	return &Set{models: append([]Classifier(nil), models...)}, nil
}

// Models returns the models in configuration order.
func (s *Set) Models() []Classifier {
	return append([]Classifier(nil), s.models...)
}

func (s *Set) Names() []string {
	names := make([]string, len(s.models))
	for i, m := range s.models {
		names[i] = m.Name()
	}
	return names
}

func (s *Set) Len() int { return len(s.models) }

// Get looks a model up by name.
func (s *Set) Get(name string) (Classifier, bool) {
	for _, m := range s.models {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}
