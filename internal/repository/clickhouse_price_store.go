package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AlphaWalk/internal/domain/models"
	pkgch "AlphaWalk/pkg/clickhouse"
	applogger "AlphaWalk/pkg/logger"
)

// CHPriceStore implements PriceStore backed by ClickHouse daily bars.
type CHPriceStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, table string) *CHPriceStore {
	if table == "" {
		table = "daily_bars"
	}
	return &CHPriceStore{client: ch, db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceStore) Fetch(ctx context.Context, tickers []string, start, end time.Time) (*models.PricePanel, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: empty ticker universe", models.ErrDataInsufficiency)
	}

	began := time.Now()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tickers)), ",")
	q := fmt.Sprintf(`
        SELECT trade_date, ticker, open, high, low, close, adj_close, volume
        FROM %s
        WHERE ticker IN (%s) AND trade_date >= ? AND trade_date <= ?
        ORDER BY ticker, trade_date ASC
    `, s.table, placeholders)

	args := make([]interface{}, 0, len(tickers)+2)
	for _, tk := range tickers {
		args = append(args, tk)
	}
	args = append(args, start, end)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse fetch_bars query error",
				applogger.String("table", s.table),
				applogger.Int("tickers", len(tickers)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer rows.Close()

	bars := make([]models.Bar, 0, 4096)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Ticker, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse fetch_bars scan error",
					applogger.String("table", s.table),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no price history for %d tickers in [%s, %s]",
			models.ErrDataInsufficiency, len(tickers),
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	panel := models.NewPricePanel(bars)
	if s.l != nil {
		s.l.Info("clickhouse fetch_bars ok",
			applogger.String("table", s.table),
			applogger.Int("tickers", len(panel.Tickers())),
			applogger.Int("rows", len(bars)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return panel, nil
}

func (s *CHPriceStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *CHPriceStore) Close() error {
	return s.client.Close()
}
