package sqlitestore

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	cafe_id    TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	created_ns INTEGER NOT NULL,
	data       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_cafe ON orders(cafe_id);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_ns, id);
`
