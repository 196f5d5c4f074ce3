// Package config provides configuration parsing for add-on projects.
//
// The configuration is stored in addon.json at the project root; addon.yaml
// and addon.yml are accepted as alternatives. This package handles loading,
// validating, and updating configuration.
//
// # Configuration File Structure
//
//	{
//	  "display_name": "Review Heatmap",
//	  "module_name": "review_heatmap",
//	  "repo_name": "review-heatmap",
//	  "author": "Jane Doe",
//	  "conflicts": [],
//	  "ankiweb_id": "1771074083",
//	  "min_anki_version": "2.1.50",
//	  "tested_anki_version": "25.06",
//	  "build_config": {
//	    "output_dir": "dist",
//	    "trash_patterns": ["*.pyc", "*.pyo", "__pycache__"],
//	    "ui_config": {
//	      "ui_dir": "ui",
//	      "designer_dir": "designer"
//	    }
//	  },
//	  "publish": {
//	    "bucket": "my-addon-releases",
//	    "prefix": "review-heatmap/"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Staging:", cfg.StagingPath())
package config
