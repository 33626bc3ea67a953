package services

import (
	"context"
	"log"
	"math"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ReviewService handles product ratings and comments.
type ReviewService struct {
	reviews  repositories.ReviewRepository
	products repositories.ProductRepository
}

func NewReviewService(reviews repositories.ReviewRepository, products repositories.ProductRepository) *ReviewService {
	return &ReviewService{reviews: reviews, products: products}
}

// ReviewInput is the review form. Rating runs from 1 to 5.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=10,max=2000"`
}

// ReviewSummary is what the product page shows below the description.
type ReviewSummary struct {
	Reviews       []models.Review `json:"reviews"`
	AverageRating float64         `json:"average_rating"`
	Count         int64           `json:"review_count"`
}

// AddReview stores a review by authorID. The product must exist.
func (s *ReviewService) AddReview(ctx context.Context, productID, authorID uint, in ReviewInput) (*models.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    authorID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	log.Printf("User %d reviewed product %d with rating %d", authorID, productID, in.Rating)
	return review, nil
}

// Reviews lists the reviews of a product, newest first.
func (s *ReviewService) Reviews(ctx context.Context, productID uint) ([]models.Review, error) {
	return s.reviews.ListByProduct(ctx, productID)
}

// AverageRating is the mean rating rounded to one decimal, 0 when unrated.
func (s *ReviewService) AverageRating(ctx context.Context, productID uint) (float64, int64, error) {
	avg, count, err := s.reviews.RatingStats(ctx, productID)
	if err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	return math.Round(avg*10) / 10, count, nil
}

func (s *ReviewService) Summary(ctx context.Context, productID uint) (*ReviewSummary, error) {
	reviews, err := s.Reviews(ctx, productID)
	if err != nil {
		return nil, err
	}
	avg, count, err := s.AverageRating(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ReviewSummary{Reviews: reviews, AverageRating: avg, Count: count}, nil
}
