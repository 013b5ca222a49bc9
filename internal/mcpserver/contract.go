package mcpserver

// SummaryTypesGuide tells MCP clients what each summary type produces, so
// they can pick one for summarize_notes.
const SummaryTypesGuide = `# Resummarize Summary Types

Pass one of these as the ` + "`type`" + ` argument of ` + "`summarize_notes`" + `.
The default is ` + "`brief`" + `.

| Type | Produces |
|------|----------|
| ` + "`brief`" + ` | Two or three sentences covering the main points. |
| ` + "`detailed`" + ` | A comprehensive summary keeping important details and structure. |
| ` + "`actionable`" + ` | Action items, tasks and next steps, one per line. |
| ` + "`todo`" + ` | A to-do list with priorities and due dates where stated. |
| ` + "`keypoints`" + ` | The key points as a list. |

## Caching

Summaries are cached per note selection and type for a few minutes. Set
` + "`refresh: true`" + ` to regenerate. Editing a note does not invalidate an
existing summary.

## Action items

` + "`get_action_items`" + ` runs an ` + "`actionable`" + ` summary over every note and
parses each line into an item with a detected priority (high, medium, low),
due date, category and source note. Sort with ` + "`priority`" + ` or ` + "`date`" + `.
`
