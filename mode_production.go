//go:build production

package statecore

const defaultMode = Production
