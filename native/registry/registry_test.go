package registry

import (
	"errors"
	"math/big"
	"testing"

	"gavelmarket/native/common"
)

func testAddr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestTokenListOwnerGuard(t *testing.T) {
	owner := testAddr(0x01)
	stranger := testAddr(0x02)
	list, err := NewTokenList(owner)
	if err != nil {
		t.Fatalf("NewTokenList: %v", err)
	}
	if err := list.Add(stranger, "wftm"); err == nil {
		t.Fatalf("expected stranger add to fail")
	}
	if err := list.Add(owner, "wftm"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !list.Contains("WFTM") || !list.Contains(" wftm ") {
		t.Fatalf("expected case-insensitive membership")
	}
	if err := list.Remove(owner, "WFTM"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if list.Contains("wftm") {
		t.Fatalf("expected token removed")
	}
}

func TestAddressBookAdminGuard(t *testing.T) {
	admin := testAddr(0x0A)
	book, err := NewAddressBook(admin)
	if err != nil {
		t.Fatalf("NewAddressBook: %v", err)
	}
	if err := book.SetAuction(testAddr(0x0B), testAddr(0x20)); err == nil {
		t.Fatalf("expected non-admin set to fail")
	}
	if err := book.SetAuction(admin, testAddr(0x20)); err != nil {
		t.Fatalf("set auction: %v", err)
	}
	if got := book.Auction(); got != testAddr(0x20) {
		t.Fatalf("auction address not stored")
	}
	if got := book.Bundle(); got != ([20]byte{}) {
		t.Fatalf("unset module should resolve to zero address")
	}
}

func TestPaymentLedgerTransferFromAllowance(t *testing.T) {
	ledger := NewPaymentLedger()
	payer := testAddr(0x01)
	operator := testAddr(0x02)
	payee := testAddr(0x03)
	if err := ledger.Mint("WFTM", payer, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.TransferFrom("WFTM", operator, payer, payee, big.NewInt(40))
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("expected allowance failure, got %v", err)
	}
	if err := ledger.Approve("WFTM", payer, operator, big.NewInt(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom("WFTM", operator, payer, payee, big.NewInt(40)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	remaining, err := ledger.Allowance("WFTM", payer, operator)
	if err != nil || remaining.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("allowance = %s (%v), want 10", remaining, err)
	}
	balance, _ := ledger.BalanceOf("WFTM", payee)
	if balance.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("payee balance = %s, want 40", balance)
	}
	err = ledger.TransferFrom("WFTM", operator, payer, payee, big.NewInt(20))
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("expected exhausted allowance failure, got %v", err)
	}
}

func TestPaymentLedgerInsufficientBalance(t *testing.T) {
	ledger := NewPaymentLedger()
	from := testAddr(0x01)
	to := testAddr(0x02)
	if err := ledger.Mint("WFTM", from, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.Transfer("WFTM", from, to, big.NewInt(11))
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("expected balance failure, got %v", err)
	}
	balance, _ := ledger.BalanceOf("WFTM", from)
	if balance.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("failed transfer must not move funds, balance %s", balance)
	}
}

func TestAssetLedgerTransferAndApproval(t *testing.T) {
	ledger := NewAssetLedger()
	contract := testAddr(0xC0)
	seller := testAddr(0x01)
	operator := testAddr(0x02)
	buyer := testAddr(0x03)
	if err := ledger.Mint(contract, 1, seller, 1); err != nil {
		t.Fatalf("mint: %v", err)
	}
	owner, err := ledger.OwnerOf(contract, 1)
	if err != nil || owner != seller {
		t.Fatalf("OwnerOf = %x (%v), want seller", owner, err)
	}
	if err := ledger.TransferFrom(contract, 1, operator, seller, buyer, 1); err == nil {
		t.Fatalf("expected unapproved operator transfer to fail")
	}
	ledger.SetApprovalForAll(contract, seller, operator, true)
	approved, _ := ledger.IsApprovedForAll(contract, seller, operator)
	if !approved {
		t.Fatalf("expected operator approval recorded")
	}
	if err := ledger.TransferFrom(contract, 1, operator, seller, buyer, 1); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	owner, err = ledger.OwnerOf(contract, 1)
	if err != nil || owner != buyer {
		t.Fatalf("OwnerOf after transfer = %x (%v), want buyer", owner, err)
	}
	balance, _ := ledger.BalanceOf(contract, 1, seller)
	if balance != 0 {
		t.Fatalf("seller balance = %d, want 0", balance)
	}
}

func TestAssetLedgerFungibleQuantities(t *testing.T) {
	ledger := NewAssetLedger()
	contract := testAddr(0xC1)
	a := testAddr(0x01)
	b := testAddr(0x02)
	if err := ledger.Mint(contract, 7, a, 5); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(contract, 7, a, a, b, 2); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if _, err := ledger.OwnerOf(contract, 7); err == nil {
		t.Fatalf("expected OwnerOf to fail with multiple holders")
	}
	balA, _ := ledger.BalanceOf(contract, 7, a)
	balB, _ := ledger.BalanceOf(contract, 7, b)
	if balA != 3 || balB != 2 {
		t.Fatalf("balances = %d/%d, want 3/2", balA, balB)
	}
	if err := ledger.TransferFrom(contract, 7, a, a, b, 4); err == nil {
		t.Fatalf("expected over-balance transfer to fail")
	}
}
