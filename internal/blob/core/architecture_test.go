package core

import (
	"testing"

	"erpsim/testutil"
)

func TestBlobCoreStaysGeneric(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.DomainImportForbidden, testutil.ServiceImportForbidden),
		"blob storage knows nothing about saves or the session service")
}
