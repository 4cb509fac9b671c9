package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/kharcha-app/kharcha/internal/common"
	"github.com/kharcha-app/kharcha/internal/model"
	"github.com/kharcha-app/kharcha/internal/service"
	"github.com/kharcha-app/kharcha/internal/storage"
)

// respondError maps the engine's error taxonomy onto HTTP statuses.
// Validation failures never reach storage; NotFound means the referenced
// record vanished (stale reference or a concurrent delete); everything
// else is a commit failure whose atomicity already guaranteed no partial
// state.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, storage.ErrInvalidTransaction),
		errors.Is(err, storage.ErrInvalidAccount),
		errors.Is(err, storage.ErrInvalidCategory),
		errors.Is(err, storage.ErrEmptyString),
		errors.Is(err, storage.ErrEmptySlice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": common.UserMessage(err, "Something went wrong. Please try again."),
		})
	}
}

// --- transactions ---

type transactionRequest struct {
	Date        time.Time       `json:"date"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Notes       string          `json:"notes"`
	Amount      decimal.Decimal `json:"amount"`
	SplitAmount decimal.Decimal `json:"splitAmount"`
}

func (r *transactionRequest) toModel() model.Transaction {
	return model.Transaction{
		Type:        model.TransactionType(r.Type),
		Amount:      r.Amount,
		SplitAmount: r.SplitAmount,
		Category:    r.Category,
		Source:      r.Source,
		Destination: r.Destination,
		Date:        r.Date,
		Notes:       r.Notes,
	}
}

type transactionResponse struct {
	Date             time.Time       `json:"date"`
	ID               string          `json:"id"`
	Type             string          `json:"type"`
	Category         string          `json:"category"`
	Source           string          `json:"source,omitempty"`
	Destination      string          `json:"destination,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	InvolvedAccounts []string        `json:"involvedAccounts"`
	Amount           decimal.Decimal `json:"amount"`
	SplitAmount      decimal.Decimal `json:"splitAmount"`
}

func toTransactionResponse(txn *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:               txn.ID,
		Type:             string(txn.Type),
		Amount:           txn.Amount,
		SplitAmount:      txn.SplitAmount,
		Category:         txn.Category,
		Source:           txn.Source,
		Destination:      txn.Destination,
		Date:             txn.Date,
		Notes:            txn.Notes,
		InvolvedAccounts: txn.InvolvedAccounts,
	}
}

func (s *Server) createTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := s.engine.CreateTransaction(c.Request.Context(), currentUser(c), req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) updateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := s.engine.UpdateTransaction(c.Request.Context(), currentUser(c), c.Param("id"), req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResponse(updated))
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) deleteTransactions(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.DeleteTransactions(c.Request.Context(), currentUser(c), req.IDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(req.IDs)})
}

func (s *Server) listTransactions(c *gin.Context) {
	filter, err := parseTransactionFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := s.store.ListTransactions(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]transactionResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toTransactionResponse(&page.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"nextCursor": page.NextCursor,
		"hasMore":    page.HasMore,
	})
}

func parseTransactionFilter(c *gin.Context) (service.TransactionFilter, error) {
	var filter service.TransactionFilter

	if from := c.Query("from"); from != "" {
		t, err := parseDateParam(from)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := parseDateParam(to)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}
	if types := c.Query("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, model.TransactionType(t))
		}
	}
	if accounts := c.Query("accounts"); accounts != "" {
		filter.Accounts = strings.Split(accounts, ",")
	}
	filter.Search = c.Query("q")
	filter.SortBy = c.Query("sort")
	filter.Ascending = c.Query("order") == "asc"
	filter.Cursor = c.Query("cursor")
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = n
	}
	return filter, nil
}

func parseDateParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("dates must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

// --- accounts ---

type accountRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

type accountResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.store.GetAccounts(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{ID: a.ID, Name: a.Name, Type: string(a.Type), Balance: a.Balance})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) saveAccount(c *gin.Context) {
	var req accountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := s.engine.SaveAccount(c.Request.Context(), currentUser(c), model.Account{
		ID:      req.ID,
		Name:    req.Name,
		Type:    model.AccountType(req.Type),
		Balance: req.Balance,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountResponse{ID: saved.ID, Name: saved.Name, Type: string(saved.Type), Balance: saved.Balance})
}

func (s *Server) deleteAccounts(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.DeleteAccounts(c.Request.Context(), currentUser(c), req.IDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(req.IDs)})
}

// --- categories ---

type categoryRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	TransactionType string `json:"transactionType"`
}

type categoryResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	TransactionType string `json:"transactionType"`
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.store.GetCategories(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, cat := range categories {
		out = append(out, categoryResponse{ID: cat.ID, Name: cat.Name, TransactionType: string(cat.TransactionType)})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) saveCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := s.engine.SaveCategory(c.Request.Context(), currentUser(c), model.Category{
		ID:              req.ID,
		Name:            req.Name,
		TransactionType: model.TransactionType(req.TransactionType),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categoryResponse{ID: saved.ID, Name: saved.Name, TransactionType: string(saved.TransactionType)})
}

func (s *Server) deleteCategories(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.DeleteCategories(c.Request.Context(), currentUser(c), req.IDs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(req.IDs)})
}

// --- adjustments ---

type adjustmentRequest struct {
	Account    string          `json:"account"`
	Difference decimal.Decimal `json:"difference"`
}

func (s *Server) adjustBalance(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := s.engine.AdjustBalance(c.Request.Context(), currentUser(c), req.Account, req.Difference)
	if err != nil {
		respondError(c, err)
		return
	}
	if created == nil {
		c.JSON(http.StatusOK, gin.H{"adjusted": false})
		return
	}
	c.JSON(http.StatusCreated, toTransactionResponse(created))
}

// --- analytics ---

type aggregateResponse struct {
	IncomeCategoryTotals    map[string]decimal.Decimal `json:"incomeCategoryTotals"`
	ExpenseCategoryTotals   map[string]decimal.Decimal `json:"expenseCategoryTotals"`
	TransferCategoryTotals  map[string]decimal.Decimal `json:"transferCategoryTotals"`
	Period                  string                     `json:"period"`
	TotalIncome             decimal.Decimal            `json:"totalIncome"`
	TotalExpense            decimal.Decimal            `json:"totalExpense"`
	NumIncomeTransactions   int64                      `json:"numIncomeTransactions"`
	NumExpenseTransactions  int64                      `json:"numExpenseTransactions"`
	NumTransferTransactions int64                      `json:"numTransferTransactions"`
}

func toAggregateResponse(agg *model.PeriodAggregate) aggregateResponse {
	return aggregateResponse{
		Period:                  agg.Period,
		TotalIncome:             agg.TotalIncome,
		TotalExpense:            agg.TotalExpense,
		NumIncomeTransactions:   agg.NumIncomeTransactions,
		NumExpenseTransactions:  agg.NumExpenseTransactions,
		NumTransferTransactions: agg.NumTransferTransactions,
		IncomeCategoryTotals:    agg.IncomeCategoryTotals,
		ExpenseCategoryTotals:   agg.ExpenseCategoryTotals,
		TransferCategoryTotals:  agg.TransferCategoryTotals,
	}
}

func (s *Server) getMonthlyAggregate(c *gin.Context) {
	s.getAggregate(c, model.PeriodMonthly)
}

func (s *Server) getDailyAggregate(c *gin.Context) {
	s.getAggregate(c, model.PeriodDaily)
}

func (s *Server) getAggregate(c *gin.Context, kind model.PeriodKind) {
	agg, err := s.store.GetAggregate(c.Request.Context(), currentUser(c), kind, c.Param("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAggregateResponse(agg))
}

func (s *Server) listMonthlyAggregates(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}

	aggregates, err := s.store.ListAggregates(c.Request.Context(), currentUser(c), model.PeriodMonthly, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]aggregateResponse, 0, len(aggregates))
	for i := range aggregates {
		out = append(out, toAggregateResponse(&aggregates[i]))
	}
	c.JSON(http.StatusOK, out)
}
