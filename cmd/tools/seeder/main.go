package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCurrencies(db)
	seedUsers(db)
	seedWorkflow(db)
	seedStore(db)

	log.Println("Seeding completed successfully!")
}

func seedCurrencies(db *sql.DB) {
	log.Println("Seeding currencies...")
	currencies := []struct{ Code, Symbol string }{
		{"YER", "﷼"},
		{"SAR", "ر.س"},
		{"USD", "$"},
	}
	for _, c := range currencies {
		if _, err := db.Exec(`
			INSERT INTO currencies (code, symbol) VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE SET symbol = EXCLUDED.symbol;
		`, c.Code, c.Symbol); err != nil {
			log.Printf("Failed to seed currency %s: %v", c.Code, err)
		}
	}
}

func seedUsers(db *sql.DB) {
	log.Println("Seeding users...")
	users := []struct {
		Name  string
		Email string
		Phone string
		Role  string
	}{
		{"Platform Admin", "admin@souq.example", "0770000001", "admin"},
		{"Ahmed Al-Hamdani", "ahmed@souq.example", "0777111222", "merchant"},
		{"Fatima Al-Sabri", "fatima@example.com", "0777333444", "customer"},
		{"Yusuf Al-Adeni", "yusuf@example.com", "0777555666", "customer"},
	}
	hash, err := argon2id.CreateHash("password123", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}
	for _, u := range users {
		if _, err := db.Exec(`
			INSERT INTO users (name, email, phone, password_hash, role)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (email) DO NOTHING;
		`, u.Name, u.Email, u.Phone, hash, u.Role); err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedWorkflow(db *sql.DB) {
	log.Println("Seeding order statuses and default workflow...")
	statuses := []struct {
		Name, Slug, Description string
		Terminal                bool
	}{
		{"Pending", "pending", "Order received, awaiting confirmation", false},
		{"Confirmed", "confirmed", "Merchant confirmed the order", false},
		{"Preparing", "preparing", "Order is being prepared", false},
		{"Delivering", "delivering", "Order is out for delivery", false},
		{"Delivered", "delivered", "Order handed to the customer", true},
	}
	ids := map[string]string{}
	for _, s := range statuses {
		var id string
		err := db.QueryRow(`
			INSERT INTO order_statuses (name, slug, description, is_terminal)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id;
		`, s.Name, s.Slug, s.Description, s.Terminal).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed status %s: %v", s.Slug, err)
		}
		ids[s.Slug] = id
	}

	var workflowID string
	err := db.QueryRow(`SELECT id FROM order_workflows WHERE is_default LIMIT 1`).Scan(&workflowID)
	if err == sql.ErrNoRows {
		err = db.QueryRow(`
			INSERT INTO order_workflows (name, is_default) VALUES ('Standard delivery', TRUE)
			RETURNING id;
		`).Scan(&workflowID)
	}
	if err != nil {
		log.Fatalf("Failed to seed default workflow: %v", err)
	}

	steps := []struct {
		Slug            string
		Priority        int
		RequiresPayment bool
	}{
		{"pending", 10, false},
		{"confirmed", 20, false},
		{"preparing", 30, false},
		{"delivering", 40, true},
		{"delivered", 50, false},
	}
	for _, st := range steps {
		if _, err := db.Exec(`
			INSERT INTO workflow_steps (workflow_id, status_id, priority, requires_payment)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (workflow_id, status_id) DO UPDATE
			SET priority = EXCLUDED.priority, requires_payment = EXCLUDED.requires_payment;
		`, workflowID, ids[st.Slug], st.Priority, st.RequiresPayment); err != nil {
			log.Printf("Failed to seed workflow step %s: %v", st.Slug, err)
		}
	}
}

func seedStore(db *sql.DB) {
	log.Println("Seeding demo store and catalog...")

	var merchantID string
	if err := db.QueryRow(`SELECT id FROM users WHERE email = 'ahmed@souq.example'`).Scan(&merchantID); err != nil {
		log.Fatalf("Failed to find seed merchant: %v", err)
	}
	var workflowID string
	if err := db.QueryRow(`SELECT id FROM order_workflows WHERE is_default LIMIT 1`).Scan(&workflowID); err != nil {
		log.Fatalf("Failed to find default workflow: %v", err)
	}

	var supplierID string
	err := db.QueryRow(`
		INSERT INTO suppliers
			(user_id, name, slug, phone, city, country, currency_code, workflow_id,
			 latitude, longitude, delivery_fee_ratio, enable_delivery_fees)
		VALUES ($1, 'Bab al-Yemen Store', 'bab-al-yemen', '0777111222', 'Sanaa', 'YE', 'YER', $2,
			15.3530, 44.2149, 150, TRUE)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`, merchantID, workflowID).Scan(&supplierID)
	if err != nil {
		log.Fatalf("Failed to seed supplier: %v", err)
	}

	products := []struct {
		Name        string
		Description string
		Price       int64
		Stock       int
	}{
		{"Sidr Honey 500g", "Raw Yemeni sidr honey from Hadramout", 1500000, 25},
		{"Adeni Tea 250g", "Black tea blend with cardamom", 120000, 120},
		{"Mokha Coffee Beans 1kg", "Single origin arabica from the Haraz mountains", 850000, 40},
		{"Raisins of Sanaa 500g", "Sun dried white raisins", 230000, 60},
	}
	for _, p := range products {
		if _, err := db.Exec(`
			INSERT INTO products (supplier_id, name, description, price, stock)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE supplier_id = $1 AND name = $2);
		`, supplierID, p.Name, p.Description, p.Price, p.Stock); err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}

	if _, err := db.Exec(`
		INSERT INTO product_offers (product_id, discount_bps, from_date, to_date, created_by)
		SELECT p.id, 1500, CURRENT_DATE, CURRENT_DATE + 30, $2
		FROM products p
		WHERE p.supplier_id = $1 AND p.name = 'Sidr Honey 500g'
		  AND NOT EXISTS (SELECT 1 FROM product_offers o WHERE o.product_id = p.id AND o.is_active);
	`, supplierID, merchantID); err != nil {
		log.Printf("Failed to seed offer: %v", err)
	}

	if _, err := db.Exec(`
		INSERT INTO addresses (user_id, phone, address_line1, city, country, latitude, longitude)
		SELECT u.id, u.phone, 'Hadda Street, Building 12', 'Sanaa', 'YE', 15.3122, 44.1950
		FROM users u
		WHERE u.email = 'fatima@example.com'
		ON CONFLICT (user_id) DO NOTHING;
	`); err != nil {
		log.Printf("Failed to seed address: %v", err)
	}
}
