package extract

// extractionPrompt asks for the page tables as bare JSON. The shape
// mirrors what a mechanical table extractor would produce: pages, rows,
// string cells, header row first, cell text exactly as printed.
const extractionPrompt = `Extract every line-item table from the attached vendor statement PDF.

Return STRICT JSON only: a JSON array with one element per page that contains a table. Each element is an array of rows; each row is an array of string cells in column order. Keep the page's header row as the first row of its table.

Rules:
- Preserve cell text exactly as printed: identifiers, numeric prefixes, line breaks inside cells, thousands separators.
- Do not merge, reorder, or drop columns; keep empty cells as "".
- Skip pages without a table; if no page has one, return [].
- Do not wrap the JSON in markdown code fences and do not add any commentary before or after it.`
