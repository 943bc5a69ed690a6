package models

import (
	"fmt"
	"strings"
)

// Wallet identifies one of the fixed set of e-wallet channels.
type Wallet string

const (
	WalletVodafone Wallet = "VODAFONE"
	WalletEtisalat Wallet = "ETISALAT"
	WalletInstapay Wallet = "INSTAPAY"
	WalletFawry    Wallet = "FAWRY"
)

// AllWallets lists every channel in canonical order. Balance summaries and
// export rows iterate this slice so output ordering is stable.
var AllWallets = []Wallet{WalletVodafone, WalletEtisalat, WalletInstapay, WalletFawry}

// walletLabels are the display names used in the spreadsheet template.
var walletLabels = map[Wallet]string{
	WalletVodafone: "فودافون كاش",
	WalletEtisalat: "اتصالات كاش",
	WalletInstapay: "انستا باي",
	WalletFawry:    "فوري",
}

// walletAliases maps normalized user-facing spellings (Arabic and Latin) to
// wallet codes. Keys are lowercased with inner whitespace collapsed.
var walletAliases = map[string]Wallet{
	"فودافون":      WalletVodafone,
	"فودافونكاش":   WalletVodafone,
	"فودافون كاش":  WalletVodafone,
	"vodafone":     WalletVodafone,
	"اتصالات":      WalletEtisalat,
	"اتصالاتكاش":   WalletEtisalat,
	"اتصالات كاش":  WalletEtisalat,
	"etisalat":     WalletEtisalat,
	"انستا باي":    WalletInstapay,
	"انستاباي":     WalletInstapay,
	"instapay":     WalletInstapay,
	"فوري":         WalletFawry,
	"fawry":        WalletFawry,
}

// Label returns the display name for the wallet.
func (w Wallet) Label() string {
	if label, ok := walletLabels[w]; ok {
		return label
	}
	return string(w)
}

// IsValid reports whether w is one of the known channels.
func (w Wallet) IsValid() bool {
	_, ok := walletLabels[w]
	return ok
}

func normalizeText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// ParseWallet resolves a wallet code, label or alias to a Wallet.
func ParseWallet(value string) (Wallet, error) {
	normalized := strings.ToLower(normalizeText(value))
	if w, ok := walletAliases[normalized]; ok {
		return w, nil
	}
	// Accept the raw enum codes too, as stored in backups.
	upper := Wallet(strings.ToUpper(normalized))
	if upper.IsValid() {
		return upper, nil
	}
	return "", fmt.Errorf("unknown wallet: %s", value)
}
