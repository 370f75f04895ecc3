// Package settlement models game-round settlement requests and the balance
// adjustments they turn into.
package settlement
