package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/annel0/voxel-terrain/internal/vec"
)

// MySQLViewerRepo реализует ViewerRepo для MariaDB/MySQL.
// Центры лежат в таблице viewer_centers.
type MySQLViewerRepo struct {
	db *sql.DB
}

const upsertViewerCenter = `
	INSERT INTO viewer_centers (viewer_id, kx, ky, kz)
	VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		kx = VALUES(kx),
		ky = VALUES(ky),
		kz = VALUES(kz),
		updated_at = CURRENT_TIMESTAMP
`

// NewMySQLViewerRepo подключается к базе (user:pass@tcp(host:port)/dbname)
// и создаёт таблицу, если её нет.
func NewMySQLViewerRepo(dsn string) (*MySQLViewerRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MySQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MySQL: %w", err)
	}

	repo := &MySQLViewerRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MySQLViewerRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS viewer_centers (
			viewer_id  BIGINT UNSIGNED PRIMARY KEY,
			kx         BIGINT      NOT NULL,
			ky         BIGINT      NOT NULL,
			kz         BIGINT      NOT NULL,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы viewer_centers: %w", err)
	}
	return nil
}

// Save сохраняет центр наблюдателя (INSERT ... ON DUPLICATE KEY UPDATE)
func (r *MySQLViewerRepo) Save(ctx context.Context, viewerID uint64, center vec.Vec3) error {
	if err := validateViewerID(viewerID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, upsertViewerCenter, viewerID, center.X, center.Y, center.Z)
	if err != nil {
		return fmt.Errorf("ошибка сохранения центра наблюдателя %d: %w", viewerID, err)
	}
	return nil
}

// Load загружает центр наблюдателя
func (r *MySQLViewerRepo) Load(ctx context.Context, viewerID uint64) (vec.Vec3, bool, error) {
	if err := validateViewerID(viewerID); err != nil {
		return vec.Vec3{}, false, err
	}

	var center vec.Vec3
	err := r.db.QueryRowContext(ctx,
		`SELECT kx, ky, kz FROM viewer_centers WHERE viewer_id = ?`, viewerID,
	).Scan(&center.X, &center.Y, &center.Z)
	if errors.Is(err, sql.ErrNoRows) {
		return vec.Vec3{}, false, nil
	}
	if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("ошибка загрузки центра наблюдателя %d: %w", viewerID, err)
	}
	return center, true, nil
}

// Delete удаляет центр наблюдателя
func (r *MySQLViewerRepo) Delete(ctx context.Context, viewerID uint64) error {
	if err := validateViewerID(viewerID); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM viewer_centers WHERE viewer_id = ?`, viewerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления центра наблюдателя %d: %w", viewerID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", ErrViewerNotFound, viewerID)
	}
	return nil
}

// BatchSave сохраняет центры в одной транзакции
func (r *MySQLViewerRepo) BatchSave(ctx context.Context, centers map[uint64]vec.Vec3) error {
	if len(centers) == 0 {
		return nil
	}
	for viewerID := range centers {
		if err := validateViewerID(viewerID); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertViewerCenter)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for viewerID, center := range centers {
		if _, err := stmt.ExecContext(ctx, viewerID, center.X, center.Y, center.Z); err != nil {
			return fmt.Errorf("ошибка сохранения центра наблюдателя %d в пакете: %w", viewerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MySQLViewerRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
