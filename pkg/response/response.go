package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

const (
	CodeUserNotFound         = 1001
	CodeBalanceNotEnough     = 1002
	CodeReferralInvalid      = 1003
	CodeReferralConflict     = 1004
	CodeReferralExpired      = 1005
	CodeGiftNotFound         = 1006
	CodeGiftAlreadyCollected = 1007
	CodeGiftCodeInvalid      = 1008
	CodeGiftCodeExhausted    = 1009
	CodeGiftCodeRedeemed     = 1010
	CodeDepositInvalid       = 1011
	CodeSystemBusy           = 1012
	CodeWithdrawalInvalid    = 1013
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
