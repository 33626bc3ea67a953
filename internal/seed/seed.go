// Package seed loads the demo catalog, accounts and reviews.
package seed

import (
	"context"
	"fmt"
	"log"

	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/shopspring/decimal"
)

type category struct {
	name, slug string
}

type product struct {
	name, description, image, category, brand, slug string
	price                                           int64
	stock                                           int
}

type review struct {
	productSlug string
	rating      int
	comment     string
}

var categories = []category{
	{"Aparaty", "aparaty"},
	{"Sprzęt filmowy", "sprzet-filmowy"},
	{"Oświetlenie studyjne", "oswietlenie-studyjne"},
	{"Drukarki", "drukarki"},
	{"Drony", "drony"},
	{"Akcesoria do smartfonów", "akcesoria-smartfony"},
	{"Aparaty analogowe", "aparaty-analogowe"},
}

var products = []product{
	{"Canon EOS R6", "Profesjonalny aparat bezlusterkowy", "eos_r6.jpg", "aparaty", "Canon", "canon-eos-r6", 12999, 10},
	{"Sony A7 IV", "Pełnoklatkowy aparat mirrorless", "sony_a7iv.jpg", "aparaty", "Sony", "sony-a7-iv", 13499, 8},
	{"Sony FX3", "Profesjonalna kamera filmowa", "sony_fx3.jpg", "sprzet-filmowy", "Sony", "sony-fx3", 22999, 5},
	{"DJI RS 3 Pro", "Profesjonalny gimbal", "dji_rs3.jpg", "sprzet-filmowy", "DJI", "dji-rs3-pro", 3999, 15},
	{"Profoto B10", "Profesjonalna lampa studyjna", "profoto_b10.jpg", "oswietlenie-studyjne", "Profoto", "profoto-b10", 8999, 7},
	{"Canon PRO-1000", "Profesjonalna drukarka fotograficzna", "pro1000.jpg", "drukarki", "Canon", "canon-pro-1000", 4999, 3},
	{"DJI Mavic 3", `Profesjonalny dron z kamerą 4/3"`, "mavic3.jpg", "drony", "DJI", "dji-mavic-3", 9999, 6},
	{"DJI OM 5", "Stabilizator do smartfona", "om5.jpg", "akcesoria-smartfony", "DJI", "dji-om5", 599, 20},
	{"Leica M6", "Kultowy aparat analogowy", "leica_m6.jpg", "aparaty-analogowe", "Leica", "leica-m6", 15999, 2},
}

var reviews = []review{
	{"canon-eos-r6", 5, "Świetny aparat, bardzo dobra jakość zdjęć!"},
	{"canon-eos-r6", 4, "Dobry aparat, ale trochę drogi jak na moje możliwości."},
	{"sony-a7-iv", 5, "Rewelacyjna jakość obrazu, polecam każdemu fotografowi!"},
	{"dji-mavic-3", 5, "Niesamowity dron, filmy w 5K wyglądają przepięknie!"},
}

// Demo credentials created by Run.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin123"
	UserEmail     = "user@example.com"
	UserPassword  = "user123"
)

// Run inserts the demo data through the services. It does nothing when the
// catalog already has categories.
func Run(ctx context.Context, store repositories.Store) error {
	existing, err := store.Categories().List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("Catalog already has %d categories, skipping seed", len(existing))
		return nil
	}

	catalog := services.NewCatalogService(store)
	users := services.NewUserService(store)
	reviewService := services.NewReviewService(store.Reviews(), store.Products())

	for _, c := range categories {
		if _, err := catalog.CreateCategory(ctx, services.CategoryInput{Name: c.name, Slug: c.slug}); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.slug, err)
		}
	}

	productIDs := make(map[string]uint, len(products))
	for _, p := range products {
		created, err := catalog.CreateProduct(ctx, services.ProductInput{
			Name:          p.name,
			Price:         decimal.NewFromInt(p.price),
			Description:   p.description,
			Image:         p.image,
			Category:      p.category,
			Brand:         p.brand,
			StockQuantity: p.stock,
			Slug:          p.slug,
		})
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.slug, err)
		}
		productIDs[p.slug] = created.ID
	}

	if _, err := users.Create(ctx, services.AdminUserInput{
		FullName: "Administrator",
		Email:    AdminEmail,
		Password: AdminPassword,
		IsAdmin:  true,
	}); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	customer, err := users.Create(ctx, services.AdminUserInput{
		FullName: "Jan Kowalski",
		Email:    UserEmail,
		Password: UserPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	for _, r := range reviews {
		_, err := reviewService.AddReview(ctx, productIDs[r.productSlug], customer.ID, services.ReviewInput{
			Rating:  r.rating,
			Comment: r.comment,
		})
		if err != nil {
			return fmt.Errorf("failed to seed review for %s: %w", r.productSlug, err)
		}
	}

	log.Printf("Seeded %d categories, %d products, 2 users and %d reviews", len(categories), len(products), len(reviews))
	return nil
}
