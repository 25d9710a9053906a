package delivery

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/service/query"
)

type JsonResponseStatus string

const (
	JsonResponseStatusSuccess JsonResponseStatus = "success"
	JsonResponseStatusFail    JsonResponseStatus = "fail"
)

type JsonResponse struct {
	Data   interface{}        `json:"data"`
	Status JsonResponseStatus `json:"status"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrIncompatibleLayout):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrTooEarly),
		errors.Is(err, domain.ErrAlreadyEnded),
		errors.Is(err, domain.ErrNoPriceFeed),
		errors.Is(err, domain.ErrStalePrice),
		errors.Is(err, domain.ErrTransferNotApproved),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrUnknownImplementation),
		errors.Is(err, domain.ErrNothingToClaim):
		return http.StatusBadRequest
	}
	return 0
}

func MakeJsonResp(c echo.Context, status int, data interface{}) error {
	if err, ok := data.(error); ok {
		if s := statusFor(err); s != 0 {
			status = s
		}
		data = err.Error()
	}

	if status >= 400 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusFail})
	}

	if status >= 200 && status < 300 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusSuccess})
	}

	return c.JSON(status, data)
}
