package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/catalog"
	"github.com/simaogato/papertrade-backend/internal/usecase/dashboard"
	"github.com/simaogato/papertrade-backend/internal/usecase/ledger"
)

// Server implements the TradingService gRPC server
type Server struct {
	CatalogService   *catalog.CatalogService
	LedgerService    *ledger.LedgerService
	DashboardService *dashboard.DashboardService
}

var _ TradingServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	catalogService *catalog.CatalogService,
	ledgerService *ledger.LedgerService,
	dashboardService *dashboard.DashboardService,
) *Server {
	return &Server{
		CatalogService:   catalogService,
		LedgerService:    ledgerService,
		DashboardService: dashboardService,
	}
}

// GetAccount handles the GetAccount RPC
func (s *Server) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	account, err := s.LedgerService.Get(ctx, identity.ID)
	if err != nil {
		return nil, mapError(err)
	}

	return accountResponse(account)
}

// Deposit handles the Deposit RPC
func (s *Server) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	// Parse amount from string to decimal
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}

	tx, err := s.LedgerService.Deposit(ctx, identity.ID, amount)
	if err != nil {
		return nil, mapError(err)
	}

	return s.transactionResponse(ctx, identity.ID, tx)
}

// Buy handles the Buy RPC
func (s *Server) Buy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.trade(ctx, req, s.LedgerService.Buy)
}

// Sell handles the Sell RPC
func (s *Server) Sell(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.trade(ctx, req, s.LedgerService.Sell)
}

type tradeFunc func(ctx context.Context, ownerID string, stockID uuid.UUID, quantity int64) (*domain.Transaction, error)

func (s *Server) trade(ctx context.Context, req *structpb.Struct, execute tradeFunc) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	stockID, err := uuidField(req, "stockId")
	if err != nil {
		return nil, err
	}
	quantity, err := intField(req, "quantity")
	if err != nil {
		return nil, err
	}

	tx, err := execute(ctx, identity.ID, stockID, quantity)
	if err != nil {
		return nil, mapError(err)
	}

	return s.transactionResponse(ctx, identity.ID, tx)
}

// GetPortfolioSummary handles the GetPortfolioSummary RPC
func (s *Server) GetPortfolioSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.LedgerService.Summary(ctx, identity.ID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(summary)
}

// ListStocks handles the ListStocks RPC
func (s *Server) ListStocks(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"stocks": s.CatalogService.List(),
	})
}

// GetStock handles the GetStock RPC. The stock is selected by id or, failing that, by symbol.
func (s *Server) GetStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var (
		stock domain.Stock
		err   error
	)

	symbol := stringField(req, "symbol")
	if stringField(req, "id") == "" && symbol != "" {
		stock, err = s.CatalogService.GetBySymbol(symbol)
	} else {
		id, parseErr := uuidField(req, "id")
		if parseErr != nil {
			return nil, parseErr
		}
		stock, err = s.CatalogService.Get(id)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return stockResponse(stock)
}

// CreateStock handles the CreateStock RPC
func (s *Server) CreateStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	spec := catalog.StockSpec{
		Symbol: stringField(req, "symbol"),
		Name:   stringField(req, "name"),
		Sector: stringField(req, "sector"),
	}
	prices := []struct {
		field string
		dst   *decimal.Decimal
	}{
		{"currentPrice", &spec.CurrentPrice},
		{"previousClose", &spec.PreviousClose},
		{"dayHigh", &spec.DayHigh},
		{"dayLow", &spec.DayLow},
	}
	for _, p := range prices {
		if *p.dst, err = decimalField(req, p.field); err != nil {
			return nil, err
		}
	}
	if spec.Volume, err = optionalInt(req, "volume"); err != nil {
		return nil, err
	}
	if marketCap, err := optionalDecimal(req, "marketCap"); err != nil {
		return nil, err
	} else if marketCap != nil {
		spec.MarketCap = *marketCap
	}

	stock, err := s.CatalogService.Create(ctx, identity, spec)
	if err != nil {
		return nil, mapError(err)
	}

	return stockResponse(*stock)
}

// UpdateStock handles the UpdateStock RPC
func (s *Server) UpdateStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	patch := catalog.StockPatch{
		Symbol:    optionalString(req, "symbol"),
		Name:      optionalString(req, "name"),
		Sector:    optionalString(req, "sector"),
		Recompute: boolField(req, "recompute"),
	}
	prices := []struct {
		field string
		dst   **decimal.Decimal
	}{
		{"currentPrice", &patch.CurrentPrice},
		{"previousClose", &patch.PreviousClose},
		{"dayHigh", &patch.DayHigh},
		{"dayLow", &patch.DayLow},
		{"marketCap", &patch.MarketCap},
	}
	for _, p := range prices {
		if *p.dst, err = optionalDecimal(req, p.field); err != nil {
			return nil, err
		}
	}
	if _, ok := req.GetFields()["volume"]; ok {
		volume, err := intField(req, "volume")
		if err != nil {
			return nil, err
		}
		patch.Volume = &volume
	}

	stock, err := s.CatalogService.Update(ctx, identity, id, patch)
	if err != nil {
		return nil, mapError(err)
	}

	return stockResponse(*stock)
}

// DeleteStock handles the DeleteStock RPC
func (s *Server) DeleteStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	id, err := uuidField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := s.CatalogService.Delete(ctx, identity, id); err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{"id": id.String(), "deleted": true})
}

// GetMarketSummary handles the GetMarketSummary RPC
func (s *Server) GetMarketSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.DashboardService.MarketSummary())
}

// Logout handles the Logout RPC. Only the cached account is dropped.
func (s *Server) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	s.LedgerService.Release(identity.ID)
	return toStruct(map[string]interface{}{"released": identity.ID})
}

// transactionResponse pairs tx with the balance it left behind. A no-op
// carries no transaction, so the current balance is read instead.
func (s *Server) transactionResponse(ctx context.Context, ownerID string, tx *domain.Transaction) (*structpb.Struct, error) {
	if tx != nil {
		return toStruct(map[string]interface{}{
			"transaction": tx,
			"cashBalance": tx.BalanceAfter,
		})
	}

	account, err := s.LedgerService.Get(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	return toStruct(map[string]interface{}{
		"transaction": nil,
		"cashBalance": account.CashBalance,
	})
}

func accountResponse(account domain.Account) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"cashBalance":  account.CashBalance,
		"holdings":     account.Holdings,
		"transactions": account.History(),
	})
}

func stockResponse(stock domain.Stock) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"stock": stock})
}

// toStruct converts a JSON-encodable value into a Struct. Decimals stay strings.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func requireIdentity(ctx context.Context) (domain.Identity, error) {
	identity, ok := domain.IdentityFromContext(ctx)
	if !ok || identity.ID == "" {
		return domain.Identity{}, status.Errorf(codes.Unauthenticated, "missing %s header", AccountIDHeader)
	}
	return identity, nil
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func optionalString(req *structpb.Struct, name string) *string {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil
	}
	s := v.GetStringValue()
	return &s
}

func boolField(req *structpb.Struct, name string) bool {
	return req.GetFields()[name].GetBoolValue()
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(req, name))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return id, nil
}

// decimalField accepts a decimal string or a JSON number
func decimalField(req *structpb.Struct, name string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		d, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
		}
		return d, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(kind.NumberValue), nil
	default:
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: expected decimal string", name)
	}
}

func optionalDecimal(req *structpb.Struct, name string) (*decimal.Decimal, error) {
	if _, ok := req.GetFields()[name]; !ok {
		return nil, nil
	}
	d, err := decimalField(req, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// intField accepts a whole JSON number or an integer string
func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", name)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(kind.StringValue), 10, 64)
		if err != nil {
			return 0, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
		}
		return n, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", name)
	}
}

func optionalInt(req *structpb.Struct, name string) (int64, error) {
	if _, ok := req.GetFields()[name]; !ok {
		return 0, nil
	}
	return intField(req, name)
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrInsufficientShares):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Errorf(codes.PermissionDenied, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
