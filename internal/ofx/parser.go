// Package ofx turns bank and card statements into payments that can be
// matched against settlement history.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	// Card processors append reference codes ("AMAZON.COM*RT4Y7HG2") and
	// stores append branch numbers ("STORE #1234").
	referenceSuffix = regexp.MustCompile(`\s*(\*\S+|#\s*\d+)$`)
	leadingDate     = regexp.MustCompile(`^\d{2}/\d{2}\s+`)
)

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericDescriptions = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// Parser reads OFX/QFX statements.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	// SGML-style files sometimes drop the closing bracket of a bare tag.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParsePayments returns every debit in the statement as a payment, in
// statement order. Credits, refunds and zero-value entries are skipped.
func (p *Parser) ParsePayments(ctx context.Context, reader io.Reader) ([]model.Payment, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var (
		payments []model.Payment
		skipped  int
	)
	collect := func(accountID string, list *ofxgo.TransactionList) error {
		if list == nil {
			return nil
		}
		for _, ofxTx := range list.Transactions {
			if err := ctx.Err(); err != nil {
				return err
			}
			payment, ok := p.convertTransaction(ofxTx, accountID)
			if !ok {
				skipped++
				continue
			}
			payments = append(payments, payment)
		}
		return nil
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			if err := collect(string(stmt.BankAcctFrom.AcctID), stmt.BankTranList); err != nil {
				return nil, err
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			if err := collect(string(stmt.CCAcctFrom.AcctID), stmt.BankTranList); err != nil {
				return nil, err
			}
		}
	}

	slog.Info("Parsed OFX file",
		"payments", len(payments),
		"skipped", skipped)

	return payments, nil
}

// convertTransaction maps a debit to a payment. It reports false for
// anything that is not money leaving the account.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.Payment, bool) {
	// OFX uses negative amounts for debits.
	amount, _ := ofxTx.TrnAmt.Float64()
	if amount >= 0 {
		return model.Payment{}, false
	}
	whole := int64(math.Round(-amount))
	if whole == 0 {
		return model.Payment{}, false
	}

	return model.Payment{
		ID:        string(ofxTx.FiTID),
		Date:      ofxTx.DtPosted.Time,
		Name:      string(ofxTx.Name),
		Place:     p.extractPlace(ofxTx),
		Amount:    whole,
		AccountID: accountID,
	}, true
}

// extractPlace derives a merchant name comparable with recorded places.
func (p *Parser) extractPlace(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && genericDescriptions[strings.ToUpper(name)] {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	name = leadingDate.ReplaceAllString(name, "")
	if trimmed := referenceSuffix.ReplaceAllString(name, ""); trimmed != "" {
		name = trimmed
	}
	return strings.TrimSpace(name)
}

// Accounts lists the distinct account IDs in the statement, in order of appearance.
func (p *Parser) Accounts(reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id ofxgo.String) {
		if id == "" || seen[string(id)] {
			return
		}
		seen[string(id)] = true
		accounts = append(accounts, string(id))
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankAcctFrom.AcctID)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CCAcctFrom.AcctID)
		}
	}

	return accounts, nil
}
