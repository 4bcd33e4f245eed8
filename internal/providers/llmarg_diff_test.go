package providers

import (
	"strings"
	"testing"
)

const sampleStagedDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
+// added a comment

 func main() {}
diff --git a/old.go b/old.go
deleted file mode 100644
index 3333333..0000000
--- a/old.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package main
-func unused() {}
`

func TestSummarizeStagedDiffCountsAddedAndRemoved(t *testing.T) {
	got := summarizeStagedDiff(sampleStagedDiff)
	if got == "" {
		t.Fatal("expected a non-empty summary")
	}
	if !strings.Contains(got, "main.go: +1 -0") {
		t.Fatalf("summary missing added-line count for main.go: %q", got)
	}
	if !strings.Contains(got, "old.go: +0 -2") {
		t.Fatalf("summary missing removed-line count for old.go: %q", got)
	}
}

func TestSummarizeStagedDiffReturnsEmptyForGarbage(t *testing.T) {
	if got := summarizeStagedDiff("not a diff at all"); got != "" {
		t.Fatalf("expected empty summary for unparseable input, got %q", got)
	}
}
