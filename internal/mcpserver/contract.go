package mcpserver

// LayoutContract describes the canonical on-disk project layout that
// LLM consumers should follow when creating or editing project folders.
const LayoutContract = `# Folio Project Layout Contract

Every portfolio project is ONE directory placed directly under the studio
root. The directory name is the project's permanent identity; renaming the
folder makes it a different project.

## Structure

` + "```" + `text
<studio root>/
  brand-refresh/                  # project folder (identity)
    02_Metadata.json              # REQUIRED - project metadata document
    01_Narrative.md               # OPTIONAL - Markdown case study
    03_Assets/                    # OPTIONAL - source and working files
      hero.png
      shots/detail.jpg
    06_Exports/                   # OPTIONAL - final deliverables
      final-deck.pdf
` + "```" + `

## Legacy layout

Older project folders use a previous naming generation. They are read
exactly like current ones; never rename their files:

- ` + "`" + `metadata.json` + "`" + ` instead of ` + "`" + `02_Metadata.json` + "`" + `
- ` + "`" + `brief.md` + "`" + ` instead of ` + "`" + `01_Narrative.md` + "`" + `
- ` + "`" + `assets/` + "`" + ` instead of ` + "`" + `03_Assets/` + "`" + `
- ` + "`" + `deliverables/` + "`" + ` instead of ` + "`" + `06_Exports/` + "`" + `

When a folder carries both generations of a file, the current one wins.
New folders MUST use the current names.

## Metadata document

` + "```" + `json
{
  "title": "Brand Refresh",
  "summary": "Full identity refresh for Acme Co.",
  "organization": "Acme Co",
  "workType": "branding",
  "year": 2023,
  "role": "Design Lead",
  "seniority": "senior",
  "categories": ["identity", "print"],
  "skills": ["typography"],
  "tools": ["figma"],
  "tags": ["featured"],
  "highlights": ["Rebuilt the identity system in six weeks"],
  "links": [{"type": "live", "url": "https://example.com", "label": "Live site"}],
  "privacy": {"nda": false},
  "coverImage": "03_Assets/hero.png",
  "pcsi": {
    "problem": "...",
    "challenge": "...",
    "solution": "...",
    "impact": "..."
  }
}
` + "```" + `

## Rules

1. **` + "`" + `title` + "`" + ` should always be set.** A project without a usable title is
   cataloged as "Untitled Project".
2. **` + "`" + `year` + "`" + ` is a four-digit integer** (a four-digit string is tolerated on
   read, never written).
3. **` + "`" + `links` + "`" + ` is a list of objects** with ` + "`" + `url` + "`" + ` required and ` + "`" + `type` + "`" + `/` + "`" + `label` + "`" + `
   optional. Reads also tolerate a bare URL string or a map keyed by link
   type; writes always use the list form.
4. **NDA flag** lives at ` + "`" + `privacy.nda` + "`" + `. NDA projects are cataloged but
   clients should treat them as restricted.
5. **Asset files** go under the asset directory, deliverable files under the
   deliverables directory. Dot-files and dot-directories are ignored by sync.
6. **Paths inside metadata** (like ` + "`" + `coverImage` + "`" + `) are project-relative with
   forward slashes.
7. **Encoding** is UTF-8; the metadata file ends with a trailing newline.
8. After changing files on disk, run the ` + "`" + `sync_project` + "`" + ` tool so the
   catalog picks the changes up.
`
