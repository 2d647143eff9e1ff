package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/codeatlas/internal/models"
)

func findRel(rels []models.Relationship, relType models.RelationshipType, target string) *models.Relationship {
	for i := range rels {
		if rels[i].Type == relType && rels[i].Target == target {
			return &rels[i]
		}
	}
	return nil
}

func TestInfer_ImportModuleEdge(t *testing.T) {
	inf := NewRelationshipInferrer()

	e := entity(models.KindImport, "Router", "")
	e.Source = "express"

	rels := inf.Infer(e, nil)

	imports := findRel(rels, models.RelImports, "express")
	require.NotNil(t, imports, "expected imports edge to module")
	assert.Equal(t, 1.0, imports.Confidence, "explicit import is certain")

	// External bare package name without manifest data
	depends := findRel(rels, models.RelDependsOn, "express")
	require.NotNil(t, depends, "expected depends-on edge for external package")
	assert.Equal(t, 0.85, depends.Confidence)
}

func TestInfer_ManifestBackedDependency(t *testing.T) {
	inf := NewRelationshipInferrer()

	e := entity(models.KindImport, "Router", "")
	e.Source = "express"
	e.PackageInfo = &models.PackageInfo{Name: "express", Version: "4.18.2"}

	rels := inf.Infer(e, nil)

	depends := findRel(rels, models.RelDependsOn, "express")
	require.NotNil(t, depends)
	assert.Equal(t, 1.0, depends.Confidence, "manifest entry makes the dependency certain")
	assert.Contains(t, depends.Evidence[0], "express@4.18.2")
}

func TestInfer_ScopedPackageRoot(t *testing.T) {
	inf := NewRelationshipInferrer()

	e := entity(models.KindImport, "Injectable", "")
	e.Source = "@nestjs/common/decorators"

	rels := inf.Infer(e, nil)

	depends := findRel(rels, models.RelDependsOn, "@nestjs/common")
	require.NotNil(t, depends, "scoped module path should reduce to @scope/pkg")
}

func TestInfer_SiblingExport(t *testing.T) {
	inf := NewRelationshipInferrer()

	imp := entity(models.KindImport, "validate", "")
	imp.Source = "./validators"
	imp.Specifiers = []string{"validate"}

	sibling := entity(models.KindExport, "validate", "export function validate(input) {")

	rels := inf.Infer(imp, []models.NormalizedEntity{*sibling})

	depends := findRel(rels, models.RelDependsOn, "validate")
	require.NotNil(t, depends, "expected depends-on to sibling export")
	assert.Equal(t, 0.85, depends.Confidence)
}

func TestInfer_ExtendsAndImplements(t *testing.T) {
	inf := NewRelationshipInferrer()

	e := entity(models.KindClass, "AdminService",
		"class AdminService extends BaseService implements Auditable, Disposable {")

	rels := inf.Infer(e, nil)

	ext := findRel(rels, models.RelExtends, "BaseService")
	require.NotNil(t, ext, "expected extends edge")
	assert.Equal(t, 1.0, ext.Confidence)

	for _, iface := range []string{"Auditable", "Disposable"} {
		impl := findRel(rels, models.RelImplements, iface)
		require.NotNil(t, impl, "expected implements edge to %s", iface)
		assert.Equal(t, 1.0, impl.Confidence)
	}
}

func TestInfer_TextScanCallsAndUses(t *testing.T) {
	inf := NewRelationshipInferrer()

	caller := entity(models.KindFunction, "createUser",
		"function createUser(data) { const id = generateId(); return UserModel; }")
	known := []models.NormalizedEntity{
		*entity(models.KindFunction, "generateId", "function generateId() {"),
		*entity(models.KindClass, "UserModel", "class UserModel {"),
	}

	rels := inf.Infer(caller, known)

	call := findRel(rels, models.RelCalls, "generateId")
	require.NotNil(t, call, "name followed by '(' is a call")
	assert.InDelta(t, 0.75, call.Confidence, 1e-9, "0.7 + 1*0.05")

	use := findRel(rels, models.RelUses, "UserModel")
	require.NotNil(t, use, "bare mention is a use")
	assert.InDelta(t, 0.75, use.Confidence, 1e-9)
}

func TestInfer_ConfidenceCapsAt095(t *testing.T) {
	inf := NewRelationshipInferrer()

	// Seven mentions would push past the cap without clamping
	caller := entity(models.KindFunction, "spam",
		"helper(); helper(); helper(); helper(); helper(); helper(); helper();")
	known := []models.NormalizedEntity{
		*entity(models.KindFunction, "helper", "function helper() {"),
	}

	rels := inf.Infer(caller, known)

	call := findRel(rels, models.RelCalls, "helper")
	require.NotNil(t, call)
	assert.Equal(t, 0.95, call.Confidence)
}

func TestInfer_WholeWordOnly(t *testing.T) {
	inf := NewRelationshipInferrer()

	// "getUserName" contains "getUser" but not as a whole word
	caller := entity(models.KindFunction, "render",
		"function render() { return getUserName(); }")
	known := []models.NormalizedEntity{
		*entity(models.KindFunction, "getUser", "function getUser() {"),
	}

	rels := inf.Infer(caller, known)
	assert.Nil(t, findRel(rels, models.RelCalls, "getUser"),
		"substring inside a longer identifier must not match")
	assert.Nil(t, findRel(rels, models.RelUses, "getUser"))
}

func TestInfer_NoSelfReference(t *testing.T) {
	inf := NewRelationshipInferrer()

	e := entity(models.KindFunction, "recurse", "function recurse() { return recurse(); }")
	rels := inf.Infer(e, []models.NormalizedEntity{*e})

	assert.Nil(t, findRel(rels, models.RelCalls, "recurse"))
}

func TestPackageRoot(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"express", "express"},
		{"lodash/fp", "lodash"},
		{"@org/pkg", "@org/pkg"},
		{"@org/pkg/deep/path", "@org/pkg"},
	}

	for _, tt := range tests {
		if got := packageRoot(tt.source); got != tt.want {
			t.Errorf("packageRoot(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
