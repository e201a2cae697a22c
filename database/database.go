// Package database reads the technician roster and the daily punch view from
// postgres.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/warner-apps/service-timeclock/timeclock"
)

const databaseTimeout = "5"

// Config is the connection and query setup for the reporting database. The
// two views are maintained by the DMS export job; PunchView is already
// restricted to the current day.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	PunchView  string
	RosterView string

	// active-technician roster filter
	JobTitle string
	EmpIDMin int64
	EmpIDMax int64
}

// Store wraps the shared connection pool.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open sets up the database connection pool. The connection itself is lazy;
// a bad host shows up on the first fetch, not here.
func Open(cfg Config) (*Store, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable connect_timeout=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, databaseTimeout)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	slog.Info("database pool ready", "host", cfg.Host, "dbname", cfg.Name)
	return &Store{db: db, cfg: cfg}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FetchRoster returns the active technicians eligible for the board: the
// configured job title within the technician employee-id range. branch
// optionally restricts to one branch id.
func (s *Store) FetchRoster(ctx context.Context, branch string) ([]timeclock.TechnicianRosterEntry, error) {
	slog.Debug("stats", "DatabaseOpenConnections", s.db.Stats().OpenConnections)

	query := fmt.Sprintf(`SELECT emp_id, emp_name, brn_id FROM %s
WHERE job_title = $1 AND emp_id BETWEEN $2 AND $3`, s.cfg.RosterView)
	args := []any{s.cfg.JobTitle, s.cfg.EmpIDMin, s.cfg.EmpIDMax}
	if branch != "" {
		query += " AND brn_id::text = $4"
		args = append(args, branch)
	}

	slog.Debug("sending database query", "query", query)
	data, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying roster view %s: %w", s.cfg.RosterView, err)
	}
	defer data.Close()

	var roster []timeclock.TechnicianRosterEntry
	for data.Next() {
		var row timeclock.TechnicianRosterEntry
		err := data.Scan(&row.EmpID, &row.EmpName, &row.BrnID)
		if err != nil {
			slog.Error("can not scan the returned roster row", "error", err)
			return roster, err
		}
		roster = append(roster, row)
	}
	return roster, data.Err()
}

// FetchPunchesToday returns every punch interval the view holds for the
// current day. Open intervals come back with a null date_end.
func (s *Store) FetchPunchesToday(ctx context.Context, branch string) ([]timeclock.RawPunchRecord, error) {
	query := fmt.Sprintf(`SELECT emp_id, emp_name, brn_id, itm_typ_des, date_start, date_end,
sls_id, ops_id, cus_name, hrs_actual, hrs_bill FROM %s`, s.cfg.PunchView)
	var args []any
	if branch != "" {
		query += " WHERE brn_id::text = $1"
		args = append(args, branch)
	}

	slog.Debug("sending database query", "query", query)
	data, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying punch view %s: %w", s.cfg.PunchView, err)
	}
	defer data.Close()

	var punches []timeclock.RawPunchRecord
	for data.Next() {
		row, err := scanPunch(data)
		if err != nil {
			slog.Error("can not scan the returned punch row", "error", err)
			return punches, err
		}
		punches = append(punches, row)
	}
	slog.Debug("punch rows fetched", "count", len(punches))
	return punches, data.Err()
}

// scanPunch maps the view's nullable columns onto the record. Missing hours
// count as zero so the open-interval sums stay defined.
func scanPunch(data *sql.Rows) (timeclock.RawPunchRecord, error) {
	var row timeclock.RawPunchRecord
	var (
		dateStart time.Time
		dateEnd   sql.NullTime
		slsID     sql.NullString
		opsID     sql.NullString
		cusName   sql.NullString
		hrsActual sql.NullFloat64
		hrsBill   sql.NullFloat64
	)

	err := data.Scan(&row.EmpID, &row.EmpName, &row.BrnID, &row.Kind,
		&dateStart, &dateEnd, &slsID, &opsID, &cusName, &hrsActual, &hrsBill)
	if err != nil {
		return row, err
	}

	row.DateStart = dateStart
	if dateEnd.Valid {
		end := dateEnd.Time
		row.DateEnd = &end
	}
	if slsID.Valid {
		row.SlsID = &slsID.String
	}
	if opsID.Valid {
		row.OpsID = &opsID.String
	}
	if cusName.Valid {
		row.CusName = &cusName.String
	}
	row.HrsActual = hrsActual.Float64
	row.HrsBill = hrsBill.Float64

	return row, nil
}
