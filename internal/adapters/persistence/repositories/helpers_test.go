package repositories

import "aadhaar-seva/internal/pkg/pagination"

func newParams() *pagination.Params {
	return pagination.New(1, 20)
}
