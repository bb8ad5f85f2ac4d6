// Package character управляет персонажем пользователя: уровнем, опытом,
// очками жизни и характеристиками.
// models.go описывает структуры персонажа и характеристик.
package character

import (
	"strings"
	"time"

	"serotonyl.ru/lifeleveling/internal/common"
)

// Stat — одна из характеристик персонажа.
type Stat string

const (
	StatStrength     Stat = "strength"     // Сила — бонус к опыту
	StatDefense      Stat = "defense"      // Защита — бонус к опыту и монетам
	StatIntelligence Stat = "intelligence" // Интеллект — бонус к монетам
	StatAgility      Stat = "agility"      // Ловкость — бонус к опыту и монетам
	StatHealth       Stat = "health"       // Здоровье — на награды не влияет
)

// AllStats — характеристики в порядке отображения.
var AllStats = []Stat{StatStrength, StatDefense, StatIntelligence, StatAgility, StatHealth}

// statAliases — как характеристику можно написать в команде.
var statAliases = map[string]Stat{
	"strength": StatStrength, "str": StatStrength, "сила": StatStrength,
	"defense": StatDefense, "def": StatDefense, "защита": StatDefense,
	"intelligence": StatIntelligence, "int": StatIntelligence, "интеллект": StatIntelligence,
	"agility": StatAgility, "agi": StatAgility, "ловкость": StatAgility,
	"health": StatHealth, "hp": StatHealth, "здоровье": StatHealth,
}

// ParseStat разбирает название характеристики (английское, русское или сокращение).
func ParseStat(s string) (Stat, error) {
	if stat, ok := statAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return stat, nil
	}
	return "", common.ErrInvalidStat
}

// Title возвращает русское название характеристики.
func (s Stat) Title() string {
	switch s {
	case StatStrength:
		return "Сила"
	case StatDefense:
		return "Защита"
	case StatIntelligence:
		return "Интеллект"
	case StatAgility:
		return "Ловкость"
	case StatHealth:
		return "Здоровье"
	default:
		return string(s)
	}
}

// Stats — фиксированный набор характеристик персонажа.
type Stats struct {
	Strength     int `json:"strength" db:"strength"`
	Defense      int `json:"defense" db:"defense"`
	Intelligence int `json:"intelligence" db:"intelligence"`
	Agility      int `json:"agility" db:"agility"`
	Health       int `json:"health" db:"health"`
}

// Get возвращает значение характеристики.
func (s Stats) Get(stat Stat) int {
	switch stat {
	case StatStrength:
		return s.Strength
	case StatDefense:
		return s.Defense
	case StatIntelligence:
		return s.Intelligence
	case StatAgility:
		return s.Agility
	case StatHealth:
		return s.Health
	default:
		return 0
	}
}

func (s *Stats) add(stat Stat, n int) error {
	switch stat {
	case StatStrength:
		s.Strength += n
	case StatDefense:
		s.Defense += n
	case StatIntelligence:
		s.Intelligence += n
	case StatAgility:
		s.Agility += n
	case StatHealth:
		s.Health += n
	default:
		return common.ErrInvalidStat
	}
	return nil
}

// Character — персонаж пользователя. Одна запись на аккаунт.
type Character struct {
	UserID     int64     `json:"user_id" db:"user_id"`
	Level      int       `json:"level" db:"level"`             // Текущий уровень (с 1)
	Experience float64   `json:"experience" db:"experience"`   // Опыт внутри текущего уровня
	LifePoints int       `json:"life_points" db:"life_points"` // Нераспределённые очки жизни
	Stats      Stats     `json:"stats"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ExperienceToNext возвращает порог опыта для текущего уровня.
func (c *Character) ExperienceToNext() float64 {
	return ExperienceToNextLevel(c.Level)
}

// Allocate переносит points очков жизни в характеристику stat.
func (c *Character) Allocate(stat Stat, points int) error {
	if points <= 0 {
		return common.ErrInvalidAmount
	}
	if points > c.LifePoints {
		return common.ErrNotEnoughLifePoints
	}
	if err := c.Stats.add(stat, points); err != nil {
		return err
	}
	c.LifePoints -= points
	return nil
}

// GainExperience начисляет опыт, поднимает уровни и выдаёт очки жизни за каждый новый уровень.
// Возвращает количество полученных уровней.
func (c *Character) GainExperience(xp float64, lifePointsPerLevel int) int {
	level, exp, gained := ApplyExperience(c.Level, c.Experience, xp)
	c.Level = level
	c.Experience = exp
	c.LifePoints += gained * lifePointsPerLevel
	return gained
}

// LevelUp — результат начисления опыта.
type LevelUp struct {
	LevelBefore      int        `json:"level_before"`
	LevelAfter       int        `json:"level_after"`
	LifePointsGained int        `json:"life_points_gained"`
	Character        *Character `json:"character"`
}

// Leveled сообщает, был ли подъём уровня.
func (l *LevelUp) Leveled() bool {
	return l.LevelAfter > l.LevelBefore
}

// Profile — всё, что показывается на экране профиля.
type Profile struct {
	Character        *Character `json:"character"`
	ExperienceToNext float64    `json:"experience_to_next"`
	Coins            int64      `json:"coins"`
}
