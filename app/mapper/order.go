package mapper

import (
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/provider"
	"github.com/vibast-solutions/ms-go-memberships/app/service"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

func OrderToResponse(item *entity.Order) *types.Order {
	if item == nil {
		return nil
	}

	return &types.Order{
		OrderId:        item.OrderID,
		UserId:         derefString(item.UserID),
		Email:          item.Email,
		MembershipType: item.MembershipType,
		Amount:         item.Amount.InexactFloat64(),
		PaymentMethod:  item.PaymentMethod,
		Status:         item.Status,
		InviteCode:     derefString(item.InviteCode),
		TransactionId:  derefString(item.TransactionID),
		EmailSent:      item.EmailSent,
		RefundStatus:   derefString(item.RefundStatus),
		RefundAt:       formatTimePtr(item.RefundAt),
		RefundReason:   derefString(item.RefundReason),
		RefundNo:       derefString(item.RefundNo),
		RefundFee:      derefString(item.RefundFee),
		CreatedAt:      formatTime(item.CreatedAt),
		PaidAt:         formatTimePtr(item.PaidAt),
		CompletedAt:    formatTimePtr(item.CompletedAt),
	}
}

func OrdersToResponse(items []*entity.Order) []*types.Order {
	result := make([]*types.Order, 0, len(items))
	for _, item := range items {
		result = append(result, OrderToResponse(item))
	}
	return result
}

func CheckoutToResponse(checkout *provider.Checkout) *types.Checkout {
	if checkout == nil {
		return nil
	}
	params := make(map[string]string, len(checkout.Params))
	for key, value := range checkout.Params {
		params[key] = value
	}
	return &types.Checkout{GatewayUrl: checkout.GatewayURL, Params: params, Hash: checkout.Hash}
}

func CreatedOrderToResponse(created *service.CreatedOrder) *types.CreateOrderResponse {
	return &types.CreateOrderResponse{
		Order:   OrderToResponse(created.Order),
		Payment: CheckoutToResponse(created.Checkout),
	}
}

func QRCodeToResponse(qr *service.QRCode) *types.QRCodeResponse {
	return &types.QRCodeResponse{
		OrderId:     qr.OrderID,
		Amount:      qr.Amount.InexactFloat64(),
		PaymentType: qr.PaymentType,
		QRCode:      qr.QRCodeURL,
		Url:         qr.URL,
	}
}

func OrderQueryToResponse(query *service.OrderQuery) *types.QueryOrderResponse {
	return &types.QueryOrderResponse{
		OrderId:     query.OrderID,
		Status:      query.Status,
		LocalStatus: query.LocalStatus,
		OpenOrderId: query.OpenOrderID,
		Message:     query.Message,
	}
}

func RefundToResponse(result *service.RefundResult) *types.RefundResponse {
	return &types.RefundResponse{
		OrderId:      result.OrderID,
		RefundStatus: result.RefundStatus,
		RefundNo:     result.RefundNo,
		RefundFee:    result.RefundFee,
		RefundTime:   result.RefundTime,
	}
}

func DiagnosisToResponse(diagnosis *provider.Diagnosis) *types.DiagnoseResponse {
	out := &types.DiagnoseResponse{
		CheckedAt: formatTime(diagnosis.CheckedAt),
		DNS:       make([]types.DNSCheck, 0, len(diagnosis.DNS)),
		HTTPS:     make([]types.HTTPSCheck, 0, len(diagnosis.HTTPS)),
	}
	for _, item := range diagnosis.DNS {
		out.DNS = append(out.DNS, types.DNSCheck{
			Host:      item.Host,
			Success:   item.Success,
			Addresses: cloneStrings(item.Addresses),
			Error:     item.Error,
		})
	}
	for _, item := range diagnosis.HTTPS {
		out.HTTPS = append(out.HTTPS, types.HTTPSCheck{
			Url:        item.URL,
			Success:    item.Success,
			StatusCode: item.StatusCode,
			Status:     item.Status,
			DurationMs: item.Duration.Milliseconds(),
			Error:      item.Error,
		})
	}
	return out
}
