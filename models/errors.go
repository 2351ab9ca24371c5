package models

import "errors"

var (
	ErrProductTitleRequired  = errors.New("product title is required")
	ErrProductPriceInvalid   = errors.New("product price must not be negative")
	ErrProductRatingInvalid  = errors.New("product rating must be between 0 and 5")
	ErrProductReviewsInvalid = errors.New("product review count must not be negative")
	ErrQuantityInvalid       = errors.New("quantity must be at least 1")
	ErrInvalidOrderStatus    = errors.New("invalid order status")
	ErrInvalidRole           = errors.New("invalid role")
)
