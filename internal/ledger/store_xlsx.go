package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	sheetCharacters = "characters"
	sheetScenes     = "scenes"
)

var characterColumns = []string{
	"id", "role", "name", "english_prompt", "native_prompt", "image_file", "status",
}

var sceneColumns = []string{
	"scene_id", "srt_start", "srt_end", "srt_text",
	"img_prompt", "video_prompt", "img_path", "video_path",
	"status_img", "status_vid", "attempts_img", "attempts_vid",
}

var characterWidths = []float64{10, 12, 20, 60, 40, 20, 12}
var sceneWidths = []float64{10, 15, 15, 50, 60, 60, 30, 30, 12, 12, 12, 12}

// XLSXStore persists scenes and characters as two sheets of an Excel
// workbook. The workbook is the operator's review surface as much as it is
// the durable store, so headers are styled and columns sized for reading.
//
// The working set lives in memory; Save rewrites both sheets and writes the
// file atomically via a temp file rename.
type XLSXStore struct {
	path string

	scenes     map[int]Scene
	characters map[string]Character
	charOrder  []string
}

// OpenXLSX loads the workbook at path, creating a new one (and its parent
// directory) if none exists.
func OpenXLSX(path string) (*XLSXStore, error) {
	s := &XLSXStore{
		path:       path,
		scenes:     make(map[int]Scene),
		characters: make(map[string]Character),
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create workbook dir: %w", err)
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if err := s.readCharacters(f); err != nil {
		return nil, err
	}
	if err := s.readScenes(f); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the workbook location.
func (s *XLSXStore) Path() string { return s.path }

func (s *XLSXStore) readCharacters(f *excelize.File) error {
	rows, err := f.GetRows(sheetCharacters)
	if err != nil {
		// Sheet missing in a hand-made workbook is fine; it gets created
		// on the next Save.
		return nil
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		c := Character{
			ID:           cell(row, 0),
			Role:         cell(row, 1),
			Name:         cell(row, 2),
			Prompt:       cell(row, 3),
			NativePrompt: cell(row, 4),
			ImageFile:    cell(row, 5),
			Status:       Status(cellDefault(row, 6, string(StatusPending))),
		}
		s.characters[c.ID] = c
		s.charOrder = append(s.charOrder, c.ID)
	}
	return nil
}

func (s *XLSXStore) readScenes(f *excelize.File) error {
	rows, err := f.GetRows(sheetScenes)
	if err != nil {
		return nil
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return fmt.Errorf("scenes row %d: bad scene_id %q: %w", i+1, row[0], err)
		}
		sc := Scene{
			ID:          id,
			SrtStart:    cell(row, 1),
			SrtEnd:      cell(row, 2),
			Text:        cell(row, 3),
			ImagePrompt: cell(row, 4),
			VideoPrompt: cell(row, 5),
			Image: StageState{
				Artifact: cell(row, 6),
				Status:   Status(cellDefault(row, 8, string(StatusPending))),
				Attempts: cellInt(row, 10),
			},
			Video: StageState{
				Artifact: cell(row, 7),
				Status:   Status(cellDefault(row, 9, string(StatusPending))),
				Attempts: cellInt(row, 11),
			},
		}
		s.scenes[sc.ID] = sc
	}
	return nil
}

func (s *XLSXStore) LoadScenes() ([]Scene, error) {
	out := make([]Scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *XLSXStore) LoadCharacters() ([]Character, error) {
	out := make([]Character, 0, len(s.charOrder))
	for _, id := range s.charOrder {
		if c, ok := s.characters[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *XLSXStore) UpsertScene(sc Scene) error {
	s.scenes[sc.ID] = sc
	return nil
}

func (s *XLSXStore) UpsertCharacter(c Character) error {
	if _, exists := s.characters[c.ID]; !exists {
		s.charOrder = append(s.charOrder, c.ID)
	}
	s.characters[c.ID] = c
	return nil
}

func (s *XLSXStore) ClearScenes() error {
	s.scenes = make(map[int]Scene)
	return nil
}

func (s *XLSXStore) ClearCharacters() error {
	s.characters = make(map[string]Character)
	s.charOrder = nil
	return nil
}

// Save rewrites the whole workbook. Writing to a temp file and renaming
// keeps a crash during save from corrupting the previous good copy.
func (s *XLSXStore) Save() error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetCharacters); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetScenes); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, cellStyle, err := workbookStyles(f)
	if err != nil {
		return err
	}

	if err := writeSheet(f, sheetCharacters, characterColumns, characterWidths, headerStyle, cellStyle, s.characterRows()); err != nil {
		return err
	}
	if err := writeSheet(f, sheetScenes, sceneColumns, sceneWidths, headerStyle, cellStyle, s.sceneRows()); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

func (s *XLSXStore) characterRows() [][]any {
	chars, _ := s.LoadCharacters()
	rows := make([][]any, 0, len(chars))
	for _, c := range chars {
		rows = append(rows, []any{
			c.ID, c.Role, c.Name, c.Prompt, c.NativePrompt, c.ImageFile, string(c.Status),
		})
	}
	return rows
}

func (s *XLSXStore) sceneRows() [][]any {
	scenes, _ := s.LoadScenes()
	rows := make([][]any, 0, len(scenes))
	for _, sc := range scenes {
		rows = append(rows, []any{
			sc.ID, sc.SrtStart, sc.SrtEnd, sc.Text,
			sc.ImagePrompt, sc.VideoPrompt,
			sc.Image.Artifact, sc.Video.Artifact,
			string(sc.Image.Status), string(sc.Video.Status),
			sc.Image.Attempts, sc.Video.Attempts,
		})
	}
	return rows
}

func workbookStyles(f *excelize.File) (header, body int, err error) {
	header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("build header style: %w", err)
	}
	body, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("build cell style: %w", err)
	}
	return header, body, nil
}

func writeSheet(f *excelize.File, sheet string, columns []string, widths []float64, headerStyle, cellStyle int, rows [][]any) error {
	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s headers: %w", sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style %s headers: %w", sheet, err)
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("size %s column %s: %w", sheet, col, err)
		}
	}

	for i, row := range rows {
		addr := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("%s%d", lastCol, len(rows)+1), cellStyle); err != nil {
			return fmt.Errorf("style %s rows: %w", sheet, err)
		}
	}

	// Keep the header visible while scrolling long projects.
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze %s header: %w", sheet, err)
	}
	return nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func cellDefault(row []string, i int, def string) string {
	if v := cell(row, i); v != "" {
		return v
	}
	return def
}

func cellInt(row []string, i int) int {
	n, _ := strconv.Atoi(cell(row, i))
	return n
}
