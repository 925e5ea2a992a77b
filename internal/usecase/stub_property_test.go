//go:build property
// +build property

package usecase_test

import (
	"context"
	"net/url"

	"github.com/phenrril/quickcart/internal/domain"
)

type stubProducts struct{}

func (stubProducts) ListProducts(context.Context, url.Values) (*domain.ProductPage, error) {
	return &domain.ProductPage{TotalPages: 50}, nil
}

func (stubProducts) ProductFacets(context.Context, url.Values) (*domain.Facets, error) {
	return &domain.Facets{}, nil
}

func (stubProducts) GetProduct(context.Context, string) (*domain.Product, error) {
	return nil, domain.ErrNotFound
}
