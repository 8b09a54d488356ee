package catalog

import "papelpos/backend/internal/domain"

// defaultProducts is the stationery catalog written on first start.
func defaultProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Cuaderno Profesional", Category: "Cuadernos", Price: 12500, Cost: 8000, TrackInventory: true, Stock: 20},
		{ID: 2, Name: "Lapicero Negro", Category: "Escritura", Price: 2200, Cost: 900, TrackInventory: true, Stock: 60},
		{ID: 3, Name: "Resaltador Amarillo", Category: "Escritura", Price: 4500, Cost: 2000, TrackInventory: true, Stock: 40},
		{ID: 4, Name: "Regla 30 cm", Category: "Útiles", Price: 3000, Cost: 1400, TrackInventory: true, Stock: 25},
		{ID: 5, Name: "Borrador", Category: "Útiles", Price: 1000, Cost: 400, TrackInventory: true, Stock: 80},
		{ID: 6, Name: "Lápiz", Category: "Útiles", Price: 1500, Cost: 600, TrackInventory: true, Stock: 100},
		{ID: 7, Name: "Marcador Permanente", Category: "Útiles", Price: 3000, Cost: 1400, TrackInventory: true, Stock: 30},
		{ID: 8, Name: "Tijeras", Category: "Útiles", Price: 5000, Cost: 2600, TrackInventory: true, Stock: 15},
		{ID: 9, Name: "Pegastick", Category: "Útiles", Price: 6000, Cost: 3200, TrackInventory: true, Stock: 18},
		{ID: 10, Name: "Carpeta", Category: "Cuadernos", Price: 7000, Cost: 3500, TrackInventory: true, Stock: 22},
		{ID: 11, Name: "Calculadora", Category: "Útiles", Price: 149000, Cost: 110000, TrackInventory: true, Stock: 6},
		{ID: 12, Name: "Post-it", Category: "Útiles", Price: 15000, Cost: 9000, TrackInventory: true, Stock: 12},
	}
}
