package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCorruptSession is returned when a stored session record cannot be decoded.
var ErrCorruptSession = errors.New("corrupt session record")

// ErrProductNotFound is returned when a product slug is unknown to the catalog.
var ErrProductNotFound = errors.New("product not found")

// ErrCategoryNotFound is returned when a category cannot be resolved.
var ErrCategoryNotFound = errors.New("category not found")

// ErrNoSteps is returned when a builder flow is started for a product without customization steps.
var ErrNoSteps = errors.New("product has no customization steps")

// ErrOrderRejected is returned by order stores when the order fails validation.
var ErrOrderRejected = errors.New("order rejected")
