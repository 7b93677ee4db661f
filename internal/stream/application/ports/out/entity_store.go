package out

import (
	"context"

	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
)

// EntityStore — последний известный снимок сущностей. Не историческое
// хранилище: одна запись на entity id, перезаписывается целиком каждым
// циклом инжеста. Нужен, чтобы свежая подписка сразу получила текущую
// картину своей области, не дожидаясь следующего опроса провайдера.
type EntityStore interface {
	// UpsertBatch перезаписывает сущности батча целиком
	UpsertBatch(ctx context.Context, batch domain.Batch) error

	// ListInArea возвращает сущности, покрытые областью (точный предикат)
	ListInArea(ctx context.Context, area domain.Area) ([]domain.Entity, error)
}
