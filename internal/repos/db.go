package repos

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

//go:embed seed/shops.yaml
var defaultShopsYAML []byte

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: sqlite serializes writers anyway and ":memory:" is per connection
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Shops are reference data; insert the defaults that are missing.
	if err := SeedShops(db, defaultShopsYAML); err != nil {
		return nil, err
	}
	// Demo catalog only on an empty DB
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Categories
CREATE TABLE IF NOT EXISTS categories(
  slug TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  major_category TEXT NOT NULL DEFAULT 'ALL' CHECK (major_category IN ('AFFORDABLE','LUXURY','ALL')),
  active INTEGER NOT NULL DEFAULT 1,
  product_count INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_categories_major ON categories(major_category);

CREATE TABLE IF NOT EXISTS subcategories(
  category_slug TEXT NOT NULL REFERENCES categories(slug) ON DELETE CASCADE,
  slug TEXT NOT NULL,
  name TEXT NOT NULL,
  product_count INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY(category_slug, slug)
);

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),
  original_price NUMERIC,
  discount NUMERIC NOT NULL DEFAULT 0 CHECK (discount >= 0),
  rating NUMERIC NOT NULL DEFAULT 0,
  review_count INTEGER NOT NULL DEFAULT 0 CHECK (review_count >= 0),
  category TEXT NOT NULL DEFAULT '',
  subcategory TEXT NOT NULL DEFAULT '',
  product_type TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  major_category TEXT NOT NULL DEFAULT 'AFFORDABLE' CHECK (major_category IN ('AFFORDABLE','LUXURY')),
  is_trending INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  date_added TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category    ON products(LOWER(category));
CREATE INDEX IF NOT EXISTS idx_products_subcategory ON products(LOWER(subcategory));
CREATE INDEX IF NOT EXISTS idx_products_type        ON products(LOWER(product_type));
CREATE INDEX IF NOT EXISTS idx_products_active      ON products(active);
CREATE INDEX IF NOT EXISTS idx_products_date_added  ON products(date_added);

-- Shops (rule-defined collections)
CREATE TABLE IF NOT EXISTS shops(
  slug TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  route TEXT,
  major_category TEXT NOT NULL DEFAULT '',
  shop_type TEXT,
  criteria_json TEXT NOT NULL DEFAULT '{}',
  default_sort TEXT NOT NULL DEFAULT 'popular',
  parent_slug TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Derived membership, rewritten wholesale by reassignment
CREATE TABLE IF NOT EXISTS product_shops(
  product_id TEXT NOT NULL,
  shop_slug  TEXT NOT NULL,
  PRIMARY KEY (product_id, shop_slug)
);
CREATE INDEX IF NOT EXISTS idx_product_shops_shop ON product_shops(shop_slug);
`
	_, err := db.Exec(schema)
	return err
}

// LoadShopsFile parses a YAML shop list from disk.
func LoadShopsFile(path string) ([]domain.Shop, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseShops(raw)
}

func parseShops(raw []byte) ([]domain.Shop, error) {
	var doc struct {
		Shops []domain.Shop `yaml:"shops"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse shops: %w", err)
	}
	for _, s := range doc.Shops {
		if s.Slug == "" || s.Name == "" {
			return nil, fmt.Errorf("%w: shop needs slug and name", domain.ErrValidation)
		}
	}
	return doc.Shops, nil
}

// SeedShops inserts the shops from raw YAML that do not exist yet. Existing
// rows are left alone so administrative edits survive restarts.
func SeedShops(db *sqlx.DB, raw []byte) error {
	shops, err := parseShops(raw)
	if err != nil {
		return err
	}
	repo := NewShopRepo(db)
	inserted, err := repo.InsertMissing(shops)
	if err != nil {
		return err
	}
	if inserted > 0 {
		applog.Info(nil, "seed.shops", map[string]any{"inserted": inserted})
	}
	return nil
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.Info(nil, "seed.catalog", nil)

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO categories(slug,name,major_category) VALUES
	  ('clothing','Clothing','AFFORDABLE'),
	  ('footwear','Footwear','ALL'),
	  ('fragrances','Fragrances','LUXURY'),
	  ('watches','Watches','ALL')`)

	tx.MustExec(`INSERT INTO subcategories(category_slug,slug,name,position) VALUES
	  ('clothing','t-shirts','T-Shirts',0),
	  ('clothing','sweatshirts','Sweatshirts',1),
	  ('footwear','sneakers','Sneakers',0),
	  ('fragrances','perfume','Perfume',0),
	  ('watches','analog','Analog',0)`)

	tx.MustExec(`INSERT INTO products(id,name,price,original_price,discount,rating,review_count,category,subcategory,product_type,brand,major_category,is_trending,date_added) VALUES
	  ('p-tee-001','Classic Cotton Tee',499,799,0,4.2,18,'clothing','t-shirts','T-Shirts','','AFFORDABLE',1,datetime('now','-3 days')),
	  ('p-sweat-001','Fleece Sweatshirt',899,NULL,10,4.6,7,'Clothing','sweatshirts','Sweatshirt','','AFFORDABLE',0,datetime('now','-40 days')),
	  ('p-snk-001','Court Sneakers',2499,NULL,0,0,0,'footwear','sneakers','Sneakers','Nike','LUXURY',1,datetime('now','-1 days')),
	  ('p-snk-002','Canvas Sneakers',699,NULL,0,3.9,12,'Footwear','sneakers','Sneakers','','AFFORDABLE',0,datetime('now','-15 days')),
	  ('p-frag-001','Oud Eau de Parfum',5400,6000,0,4.8,31,'fragrances','perfume','Perfume','Maison Noir','LUXURY',0,datetime('now','-60 days')),
	  ('p-watch-001','Chronograph Steel Watch',12500,NULL,0,4.4,9,'watches','analog','Analog','Tissot','LUXURY',1,datetime('now','-5 days'))`)

	return tx.Commit()
}
