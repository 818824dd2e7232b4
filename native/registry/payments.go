package registry

import (
	"fmt"
	"math/big"
	"sync"

	"gavelmarket/native/common"
)

// PaymentLedger is an in-memory fungible-token ledger with ERC20-style
// balances and allowances. It stands in for the external payment registry in
// tests and in the reference host wiring; the settlement ledgers only ever see
// it through their own narrow interfaces.
type PaymentLedger struct {
	mu         sync.Mutex
	balances   map[string]map[[20]byte]*big.Int
	allowances map[string]map[[20]byte]map[[20]byte]*big.Int
}

// NewPaymentLedger constructs an empty payment ledger.
func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{
		balances:   make(map[string]map[[20]byte]*big.Int),
		allowances: make(map[string]map[[20]byte]map[[20]byte]*big.Int),
	}
}

// Mint credits freshly issued units to an account.
func (p *PaymentLedger) Mint(token string, to [20]byte, amount *big.Int) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("registry: mint amount must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credit(normalized, to, amount)
	return nil
}

// BalanceOf returns the balance held by an account for the token.
func (p *PaymentLedger) BalanceOf(token string, account [20]byte) (*big.Int, error) {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.balance(normalized, account)), nil
}

// Approve grants the spender an allowance over the owner's balance.
func (p *PaymentLedger) Approve(token string, owner, spender [20]byte, amount *big.Int) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("registry: allowance must be non-negative")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	byOwner, ok := p.allowances[normalized]
	if !ok {
		byOwner = make(map[[20]byte]map[[20]byte]*big.Int)
		p.allowances[normalized] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[[20]byte]*big.Int)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the remaining allowance the owner granted the spender.
func (p *PaymentLedger) Allowance(token string, owner, spender [20]byte) (*big.Int, error) {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if byOwner, ok := p.allowances[normalized]; ok {
		if bySpender, ok := byOwner[owner]; ok {
			if current, ok := bySpender[spender]; ok && current != nil {
				return new(big.Int).Set(current), nil
			}
		}
	}
	return big.NewInt(0), nil
}

// Transfer moves funds the sender already holds.
func (p *PaymentLedger) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.move(normalized, from, to, amount)
}

// TransferFrom moves funds from the payer on behalf of the operator, drawing
// down the payer's allowance. The operator spending its own balance needs no
// allowance.
func (p *PaymentLedger) TransferFrom(token string, operator, from, to [20]byte, amount *big.Int) error {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if operator != from {
		allowance := p.allowance(normalized, from, operator)
		if allowance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: allowance %s below %s", common.ErrInsufficientFunds, allowance, amount)
		}
		if err := p.move(normalized, from, to, amount); err != nil {
			return err
		}
		p.allowances[normalized][from][operator] = allowance.Sub(allowance, amount)
		return nil
	}
	return p.move(normalized, from, to, amount)
}

func (p *PaymentLedger) move(token string, from, to [20]byte, amount *big.Int) error {
	current := p.balance(token, from)
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s below %s", common.ErrInsufficientFunds, current, amount)
	}
	current.Sub(current, amount)
	p.credit(token, to, amount)
	return nil
}

func (p *PaymentLedger) balance(token string, account [20]byte) *big.Int {
	byAccount, ok := p.balances[token]
	if !ok {
		byAccount = make(map[[20]byte]*big.Int)
		p.balances[token] = byAccount
	}
	current, ok := byAccount[account]
	if !ok || current == nil {
		current = big.NewInt(0)
		byAccount[account] = current
	}
	return current
}

func (p *PaymentLedger) credit(token string, to [20]byte, amount *big.Int) {
	current := p.balance(token, to)
	current.Add(current, amount)
}

func (p *PaymentLedger) allowance(token string, owner, spender [20]byte) *big.Int {
	byOwner, ok := p.allowances[token]
	if !ok {
		byOwner = make(map[[20]byte]map[[20]byte]*big.Int)
		p.allowances[token] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[[20]byte]*big.Int)
		byOwner[owner] = bySpender
	}
	current, ok := bySpender[spender]
	if !ok || current == nil {
		current = big.NewInt(0)
		bySpender[spender] = current
	}
	return current
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("registry: transfer amount must be non-negative")
	}
	return nil
}
