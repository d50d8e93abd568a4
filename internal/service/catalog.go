package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/storely/storefront-api/internal/dto"
	"github.com/storely/storefront-api/internal/model"
	"github.com/storely/storefront-api/internal/pricing"
	"github.com/storely/storefront-api/internal/repository"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionNotEmpty = errors.New("collection contains one or more products")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductOrdered     = errors.New("product is associated with an order item")
	ErrInvalidPrice       = errors.New("unit price must be positive")
	ErrInvalidInventory   = errors.New("inventory must not be negative")
)

const productCacheTTL = 60 * time.Second

type CatalogService struct {
	collectionRepo repository.CollectionRepository
	productRepo    repository.ProductRepository
	redisClient    *redis.Client
	calc           pricing.Calculator
}

func NewCatalogService(
	collectionRepo repository.CollectionRepository,
	productRepo repository.ProductRepository,
	redisClient *redis.Client,
	calc pricing.Calculator,
) *CatalogService {
	return &CatalogService{
		collectionRepo: collectionRepo,
		productRepo:    productRepo,
		redisClient:    redisClient,
		calc:           calc,
	}
}

// --- Collections ---

func (s *CatalogService) CreateCollection(ctx context.Context, req dto.CreateCollectionRequest) (*dto.CollectionResponse, error) {
	collection := &model.Collection{Title: req.Title}
	if err := s.collectionRepo.Create(ctx, collection); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	resp := toCollectionResponse(collection)
	return &resp, nil
}

func (s *CatalogService) GetCollection(ctx context.Context, id uuid.UUID) (*dto.CollectionResponse, error) {
	collection, err := s.collectionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	if collection == nil {
		return nil, ErrCollectionNotFound
	}
	resp := toCollectionResponse(collection)
	return &resp, nil
}

func (s *CatalogService) ListCollections(ctx context.Context) ([]dto.CollectionResponse, error) {
	collections, err := s.collectionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	resp := make([]dto.CollectionResponse, 0, len(collections))
	for i := range collections {
		resp = append(resp, toCollectionResponse(&collections[i]))
	}
	return resp, nil
}

func (s *CatalogService) UpdateCollection(ctx context.Context, id uuid.UUID, req dto.CreateCollectionRequest) (*dto.CollectionResponse, error) {
	collection := &model.Collection{ID: id, Title: req.Title}
	if err := s.collectionRepo.Update(ctx, collection); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("update collection: %w", err)
	}
	return s.GetCollection(ctx, id)
}

// DeleteCollection refuses while any product still belongs to the
// collection; the collection stays retrievable after a rejected delete.
func (s *CatalogService) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	err := s.collectionRepo.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrReferenced):
		return ErrCollectionNotEmpty
	case errors.Is(err, pgx.ErrNoRows):
		return ErrCollectionNotFound
	default:
		return fmt.Errorf("delete collection: %w", err)
	}
}

// --- Products ---

func (s *CatalogService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if !req.UnitPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}
	product := &model.Product{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		UnitPrice:    req.UnitPrice,
		Inventory:    req.Inventory,
		CollectionID: req.CollectionID,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := s.toProductResponse(product)
	return &resp, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := "product:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := s.toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}
	return &resp, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	filter := repository.ProductFilter{
		Limit:        req.Limit,
		Offset:       (req.Page - 1) * req.Limit,
		Search:       req.Search,
		CollectionID: req.CollectionID,
		Sort:         req.Sort,
		Order:        req.Order,
	}
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, s.toProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Products: items, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Slug != nil {
		product.Slug = *req.Slug
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.UnitPrice != nil {
		if !req.UnitPrice.IsPositive() {
			return nil, ErrInvalidPrice
		}
		product.UnitPrice = *req.UnitPrice
	}
	if req.Inventory != nil {
		if *req.Inventory < 0 {
			return nil, ErrInvalidInventory
		}
		product.Inventory = *req.Inventory
	}
	if req.CollectionID != nil {
		product.CollectionID = *req.CollectionID
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	resp := s.toProductResponse(product)
	return &resp, nil
}

// DeleteProduct refuses while any order item references the product.
// Live cart references do not block; they are cascaded by the schema.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.productRepo.Delete(ctx, id)
	switch {
	case err == nil:
		s.invalidateCache(ctx, id)
		return nil
	case errors.Is(err, repository.ErrReferenced):
		return ErrProductOrdered
	case errors.Is(err, pgx.ErrNoRows):
		return ErrProductNotFound
	default:
		return fmt.Errorf("delete product: %w", err)
	}
}

func (s *CatalogService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "product:"+id.String())
	}
}

func toCollectionResponse(c *model.Collection) dto.CollectionResponse {
	return dto.CollectionResponse{ID: c.ID, Title: c.Title, ProductCount: c.ProductCount}
}

func (s *CatalogService) toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Description:  p.Description,
		UnitPrice:    p.UnitPrice,
		PriceWithTax: pricing.Display(s.calc.PriceWithTax(p.UnitPrice)),
		Inventory:    p.Inventory,
		CollectionID: p.CollectionID,
		LastUpdate:   p.LastUpdate,
	}
}
