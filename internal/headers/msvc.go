package headers

import "strings"

// cl.exe localizes its /showIncludes marker; the user's language pack can't
// be assumed, so every known spelling is tried.
// See https://github.com/ninja-build/ninja/issues/613 for the history.
var msvcIncludeMarkers = []string{
	"Note: including file:",           // English - United States
	"注意: 包含文件: ",                      // Chinese - PRC
	"注意: 包含檔案:",                       // Chinese - Taiwan
	"Poznámka: Včetně souboru:",       // Czech
	"Hinweis: Einlesen der Datei:",    // German
	"Remarque : inclusion du fichier : ", // French
	"Nota: file incluso ",             // Italian
	"メモ: インクルード ファイル: ",               // Japanese
	"참고: 포함 파일:",                      // Korean
	"Uwaga: w tym pliku: ",            // Polish
	"Observação: incluindo arquivo:",  // Portuguese - Brazil
	"Примечание: включение файла: ",   // Russian
	"Not: eklenen dosya: ",            // Turkish
	"Nota: inclusión del archivo:",    // Spanish
}

// parseShowIncludes extracts header paths from cl.exe /showIncludes stderr.
// Lines that are neither include markers nor the echoed source filename are
// returned as diagnostics for the caller to surface.
func parseShowIncludes(stderr, sourcePath string) (headers []string, diagnostics []string) {
	seen := make(map[string]bool)
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		// cl.exe echoes the source filename before the include output.
		if sourcePath == line || strings.HasSuffix(sourcePath, "/"+line) {
			continue
		}
		matched := false
		for _, marker := range msvcIncludeMarkers {
			if strings.HasPrefix(line, marker) {
				header := strings.TrimSpace(line[len(marker):])
				if header != "" && !seen[header] {
					seen[header] = true
					headers = append(headers, header)
				}
				matched = true
				break
			}
		}
		if !matched {
			diagnostics = append(diagnostics, line)
		}
	}
	return headers, diagnostics
}
