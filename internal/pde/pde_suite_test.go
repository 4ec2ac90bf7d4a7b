package pde_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPDE(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PDE Suite")
}
