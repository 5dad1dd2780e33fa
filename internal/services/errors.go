package services

import "errors"

// Базовые ошибки бизнес-логики. Сервисы оборачивают их через %w,
// HTTP-слой сопоставляет через errors.Is и возвращает 404/409/400.
var (
	// ErrNotFound — сущность, на которую ссылается запрос, не существует
	ErrNotFound = errors.New("not found")

	// ErrConflict — нарушение машины состояний, уникальности,
	// принадлежности клиенту или превышение распределения
	ErrConflict = errors.New("conflict")

	// ErrBadRequest — некорректный/неполный ввод
	ErrBadRequest = errors.New("bad request")
)
