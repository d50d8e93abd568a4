package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/repository"
)

var ErrReviewNotFound = errors.New("review not found")

type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, productRepo: productRepo}
}

func (s *ReviewService) Create(ctx context.Context, productID uuid.UUID, req dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	review := &model.Review{ProductID: productID, Name: req.Name, Description: req.Description}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *ReviewService) Get(ctx context.Context, productID, id uuid.UUID) (*dto.ReviewResponse, error) {
	review, err := s.reviewRepo.GetByID(ctx, productID, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *ReviewService) List(ctx context.Context, productID uuid.UUID) ([]dto.ReviewResponse, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	resp := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, toReviewResponse(&reviews[i]))
	}
	return resp, nil
}

func (s *ReviewService) Update(ctx context.Context, productID, id uuid.UUID, req dto.CreateReviewRequest) (*dto.ReviewResponse, error) {
	review := &model.Review{ID: id, ProductID: productID, Name: req.Name, Description: req.Description}
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return s.Get(ctx, productID, id)
}

func (s *ReviewService) Delete(ctx context.Context, productID, id uuid.UUID) error {
	if err := s.reviewRepo.Delete(ctx, productID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (s *ReviewService) requireProduct(ctx context.Context, productID uuid.UUID) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	return nil
}

func toReviewResponse(r *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:          r.ID,
		ProductID:   r.ProductID,
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
	}
}
