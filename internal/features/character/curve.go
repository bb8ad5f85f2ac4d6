// Package character — curve.go содержит кривую уровней.
package character

// ExperiencePerLevel — сколько опыта нужно на каждый уровень: порог = 100 * уровень.
const ExperiencePerLevel = 100.0

// ExperienceToNextLevel возвращает, сколько опыта нужно набрать на уровне level,
// чтобы перейти на следующий.
//
// Таблица:
//
//	Уровень 1 → 100
//	Уровень 2 → 200
//	Уровень 10 → 1000
//
// Уровни ниже 1 считаются первым.
func ExperienceToNextLevel(level int) float64 {
	if level < 1 {
		level = 1
	}
	return ExperiencePerLevel * float64(level)
}

// ApplyExperience добавляет опыт и поднимает уровень, пока хватает опыта на порог.
// Излишек переносится на следующий уровень. Отрицательный опыт игнорируется.
//
// Возвращает новый уровень, опыт внутри него и сколько уровней получено.
func ApplyExperience(level int, exp, gained float64) (int, float64, int) {
	if level < 1 {
		level = 1
	}
	if exp < 0 {
		exp = 0
	}
	if gained > 0 {
		exp += gained
	}

	levels := 0
	for exp >= ExperienceToNextLevel(level) {
		exp -= ExperienceToNextLevel(level)
		level++
		levels++
	}
	return level, exp, levels
}
