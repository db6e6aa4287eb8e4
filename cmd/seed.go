package cmd

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/app"
	"github.com/jmehdipour/optica-notifier/internal/db"
	"github.com/jmehdipour/optica-notifier/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo clinic data",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Info("seeding demo clinic data")

		if err := seedClinic(sqlDB, time.Now().UTC()); err != nil {
			return err
		}

		log.Info("seed completed", zap.Int("clients", len(demoClients)))
		return nil
	},
}

type demoClient struct {
	RUT   string
	Name  string
	Email *string
	Phone *string
}

var demoClients = []demoClient{
	{RUT: "11.111.111-1", Name: "Ana Pérez", Email: strptr("ana.perez@example.cl"), Phone: strptr("+56 9 1111 1111")},
	{RUT: "22.222.222-2", Name: "Bruno Soto", Email: strptr("bruno.soto@example.cl")},
	{RUT: "33.333.333-3", Name: "Carla Muñoz", Phone: strptr("912345678")},
	{RUT: "44.444.444-4", Name: "Diego Rojas", Email: strptr(" "), Phone: strptr("")}, // unreachable
}

// seedClinic inserts demo rows relative to now so every generator has
// something to pick up on its next run. It is not idempotent; run migrate first.
func seedClinic(dbx *sqlx.DB, now time.Time) error {
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	clientIDs := make([]int64, 0, len(demoClients))
	for _, c := range demoClients {
		res, err := tx.Exec(`
INSERT INTO clients (rut, name, email, phone, created_at)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), name = VALUES(name), email = VALUES(email), phone = VALUES(phone)
`, c.RUT, c.Name, c.Email, c.Phone, now)
		if err != nil {
			return fmt.Errorf("insert client %q: %w", c.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		clientIDs = append(clientIDs, id)
	}

	res, err := tx.Exec(`INSERT INTO campaigns (name, date, location) VALUES (?, ?, ?)`,
		"Operativo oftalmológico Maipú", now.AddDate(0, 0, 10), "Plaza de Maipú")
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	campaignID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	appointments := []struct {
		client   int64
		campaign *int64
		at       time.Time
		status   string
	}{
		{client: clientIDs[0], campaign: &campaignID, at: now.Add(23*time.Hour + 30*time.Minute), status: model.AppointmentStatusConfirmed},
		{client: clientIDs[1], at: now.Add(20 * time.Hour), status: model.AppointmentStatusConfirmed},
		{client: clientIDs[2], at: now.Add(22 * time.Hour), status: "Pending"},
		{client: clientIDs[3], at: now.Add(5 * time.Hour), status: model.AppointmentStatusConfirmed},
	}
	for _, a := range appointments {
		if _, err := tx.Exec(`INSERT INTO appointments (client_id, campaign_id, scheduled_at, status) VALUES (?, ?, ?, ?)`,
			a.client, a.campaign, a.at, a.status); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
	}

	res, err = tx.Exec(`INSERT INTO products (name, price) VALUES (?, ?)`, "Lentes progresivos", 189990)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	productID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	// one warranty per reachable client, expiring inside the 7-day window
	for i, cid := range clientIDs[:3] {
		res, err := tx.Exec(`INSERT INTO sales (client_id, sold_at) VALUES (?, ?)`, cid, now.AddDate(-1, 0, 0))
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		saleID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.Exec(`INSERT INTO sale_items (sale_id, product_id, quantity) VALUES (?, ?, 1)`, saleID, productID)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		end := now.AddDate(0, 0, 2+2*i)
		if _, err := tx.Exec(`INSERT INTO warranties (sale_item_id, start_date, end_date) VALUES (?, ?, ?)`,
			itemID, end.AddDate(-1, 0, 0), end); err != nil {
			return fmt.Errorf("insert warranty: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func strptr(s string) *string { return &s }
