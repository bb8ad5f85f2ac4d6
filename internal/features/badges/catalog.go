// Package badges выдаёт значки за достижения: уровни, выполнения, серии, монеты.
// catalog.go загружает каталог значков из встроенного YAML.
package badges

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Kind — на что смотрит условие значка.
type Kind string

const (
	KindLevel         Kind = "level"
	KindCompletions   Kind = "completions"
	KindLongestStreak Kind = "longest_streak"
	KindCoinsEarned   Kind = "coins_earned"
)

// Condition — условие открытия значка: показатель Kind достиг Threshold.
type Condition struct {
	Kind      Kind  `yaml:"kind" json:"kind"`
	Threshold int64 `yaml:"threshold" json:"threshold"`
}

// Badge — описание значка из каталога.
type Badge struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Icon        string    `yaml:"icon" json:"icon"`
	Condition   Condition `yaml:"condition" json:"condition"`
}

// Progress — показатели пользователя, по которым проверяются условия.
type Progress struct {
	Level         int
	Completions   int64
	LongestStreak int
	CoinsEarned   int64
}

// Satisfied сообщает, выполнено ли условие при данном прогрессе.
func (c Condition) Satisfied(p Progress) bool {
	var value int64
	switch c.Kind {
	case KindLevel:
		value = int64(p.Level)
	case KindCompletions:
		value = p.Completions
	case KindLongestStreak:
		value = int64(p.LongestStreak)
	case KindCoinsEarned:
		value = p.CoinsEarned
	default:
		return false
	}
	return value >= c.Threshold
}

// Catalog — упорядоченный список значков.
type Catalog struct {
	Badges []Badge `yaml:"badges"`
}

// LoadCatalog разбирает встроенный каталог.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog разбирает каталог из YAML и проверяет его.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("ошибка разбора каталога значков: %w", err)
	}

	seen := make(map[string]bool, len(c.Badges))
	for _, b := range c.Badges {
		if b.ID == "" || b.Name == "" {
			return nil, fmt.Errorf("значок без id или названия: %+v", b)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("значок %q описан дважды", b.ID)
		}
		seen[b.ID] = true

		switch b.Condition.Kind {
		case KindLevel, KindCompletions, KindLongestStreak, KindCoinsEarned:
		default:
			return nil, fmt.Errorf("значок %q: неизвестное условие %q", b.ID, b.Condition.Kind)
		}
		if b.Condition.Threshold <= 0 {
			return nil, fmt.Errorf("значок %q: порог должен быть положительным", b.ID)
		}
	}
	return &c, nil
}

// Eligible возвращает значки, условия которых выполнены.
func (c *Catalog) Eligible(p Progress) []Badge {
	var out []Badge
	for _, b := range c.Badges {
		if b.Condition.Satisfied(p) {
			out = append(out, b)
		}
	}
	return out
}
